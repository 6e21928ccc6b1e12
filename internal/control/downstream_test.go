package control

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

// fakeServerStream is a minimal in-process grpc.ServerStream so Server.Join
// can be exercised without a real network listener.
type fakeServerStream struct {
	ctx context.Context
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(interface{}) error    { return nil }
func (f *fakeServerStream) RecvMsg(interface{}) error    { return nil }

type fakeJoinServer struct {
	fakeServerStream
	in  chan *hailstormpb.AgentMessage
	out chan *hailstormpb.ControllerCommand
}

func newFakeJoinServer() *fakeJoinServer {
	return &fakeJoinServer{
		fakeServerStream: fakeServerStream{ctx: context.Background()},
		in:               make(chan *hailstormpb.AgentMessage, 8),
		out:              make(chan *hailstormpb.ControllerCommand, 8),
	}
}

func (f *fakeJoinServer) Send(cmd *hailstormpb.ControllerCommand) error {
	f.out <- cmd
	return nil
}

func (f *fakeJoinServer) Recv() (*hailstormpb.AgentMessage, error) {
	msg, ok := <-f.in
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func TestJoinTracksAgentIdsAndForwardsUpdates(t *testing.T) {
	var mu sync.Mutex
	var got []*hailstormpb.AgentUpdate

	s := NewServer(func(updates []*hailstormpb.AgentUpdate) {
		mu.Lock()
		got = append(got, updates...)
		mu.Unlock()
	})

	stream := newFakeJoinServer()
	done := make(chan error, 1)
	go func() { done <- s.Join(stream) }()

	stream.in <- &hailstormpb.AgentMessage{Updates: []*hailstormpb.AgentUpdate{{AgentId: 7}}}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)

	close(stream.in)
	require.NoError(t, <-done)
}

func TestDispatchTargetedAgentIdReachesOnlyMatchingConnection(t *testing.T) {
	s := NewServer(nil)

	streamA := newFakeJoinServer()
	streamB := newFakeJoinServer()
	doneA := make(chan error, 1)
	doneB := make(chan error, 1)
	go func() { doneA <- s.Join(streamA) }()
	go func() { doneB <- s.Join(streamB) }()

	streamA.in <- &hailstormpb.AgentMessage{Updates: []*hailstormpb.AgentUpdate{{AgentId: 10}}}
	streamB.in <- &hailstormpb.AgentMessage{Updates: []*hailstormpb.AgentUpdate{{AgentId: 20}}}

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, conn := range s.connections {
			if conn.hasAgent(10) || conn.hasAgent(20) {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	cmd := &hailstormpb.ControllerCommand{Target: &hailstormpb.Target{Target: &hailstormpb.Target_AgentId{AgentId: 20}}}
	s.Dispatch(cmd)

	select {
	case <-streamB.out:
	case <-time.After(time.Second):
		t.Fatal("expected command on stream B")
	}

	select {
	case <-streamA.out:
		t.Fatal("stream A should not have received the targeted command")
	case <-time.After(50 * time.Millisecond):
	}

	close(streamA.in)
	close(streamB.in)
	require.NoError(t, <-doneA)
	require.NoError(t, <-doneB)
}

func TestMatchesTargetNilOrGroupAllMatchesEverything(t *testing.T) {
	conn := newDownstreamConnection()
	assert.True(t, matchesTarget(conn, nil))
	assert.True(t, matchesTarget(conn, &hailstormpb.Target{}))
	assert.True(t, matchesTarget(conn, &hailstormpb.Target{Target: &hailstormpb.Target_Group{Group: hailstormpb.AgentGroup_ALL}}))
}

func TestMatchesTargetAgentsMatchesAnyListedId(t *testing.T) {
	conn := newDownstreamConnection()
	conn.touch(5, time.Now())

	assert.True(t, matchesTarget(conn, &hailstormpb.Target{Target: &hailstormpb.Target_Agents{Agents: &hailstormpb.MultiAgent{AgentIds: []uint32{1, 5}}}}))
	assert.False(t, matchesTarget(conn, &hailstormpb.Target{Target: &hailstormpb.Target_Agents{Agents: &hailstormpb.MultiAgent{AgentIds: []uint32{1, 2}}}}))
}

func TestConnectionEvictsStaleAgentIds(t *testing.T) {
	conn := newDownstreamConnection()
	conn.touch(1, time.Now().Add(-2*connectionTTL))
	conn.touch(2, time.Now())

	conn.evictStale(time.Now())

	assert.False(t, conn.hasAgent(1))
	assert.True(t, conn.hasAgent(2))
}
