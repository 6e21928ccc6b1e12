// Package control implements the two halves of the agent-to-agent control
// plane: the downstream server endpoint that accepts child agent (or
// controller-side) connections, and the upstream client that maintains a
// reconnecting stream to a parent.
package control

import (
	"io"
	"math/rand/v2"
	"sync"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

const (
	connectionTTL        = 60 * time.Second
	commandChannelBuffer = 32
	updateChannelBuffer  = 32
)

// ConnectedAgent tracks one downstream agent id reported on a connection.
type ConnectedAgent struct {
	LastReceivedUpdate time.Time
}

type downstreamConnection struct {
	mu       sync.Mutex
	agentIDs map[uint32]*ConnectedAgent
	commands chan *hailstormpb.ControllerCommand
	updates  chan []*hailstormpb.AgentUpdate
}

func newDownstreamConnection() *downstreamConnection {
	return &downstreamConnection{
		agentIDs: make(map[uint32]*ConnectedAgent),
		commands: make(chan *hailstormpb.ControllerCommand, commandChannelBuffer),
		updates:  make(chan []*hailstormpb.AgentUpdate, updateChannelBuffer),
	}
}

func (c *downstreamConnection) touch(agentID uint32, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.agentIDs[agentID]
	if !ok {
		entry = &ConnectedAgent{}
		c.agentIDs[agentID] = entry
	}
	if ts.After(entry.LastReceivedUpdate) {
		entry.LastReceivedUpdate = ts
	}
}

func (c *downstreamConnection) evictStale(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.agentIDs {
		if now.Sub(entry.LastReceivedUpdate) > connectionTTL {
			delete(c.agentIDs, id)
		}
	}
}

func (c *downstreamConnection) hasAgent(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.agentIDs[id]
	return ok
}

// Server is the downstream server endpoint (spec §4.8): it implements
// HailstormServiceServer, tracking which bot agent ids each connection has
// reported and routing targeted ControllerCommands to the matching
// connections. Every inbound AgentMessage is forwarded, merged across all
// live connections, to onUpdates.
type Server struct {
	mu          sync.Mutex
	connections map[uint64]*downstreamConnection
	onUpdates   func([]*hailstormpb.AgentUpdate)

	mergeDone chan struct{}
	mergeWG   sync.WaitGroup

	hailstormpb.UnimplementedHailstormServiceServer
}

// NewServer returns a Server that invokes onUpdates, from an internal
// goroutine, once per inbound AgentMessage received on any connection.
// onUpdates must not block for long; it is called serially across all
// connections' merged update stream.
func NewServer(onUpdates func([]*hailstormpb.AgentUpdate)) *Server {
	s := &Server{
		connections: make(map[uint64]*downstreamConnection),
		onUpdates:   onUpdates,
	}
	s.rebuildMergeLocked()
	return s
}

// rebuildMergeLocked tears down the current fan-in goroutine, if any, and
// starts a fresh one over the current connection set. Must be called with
// s.mu held.
func (s *Server) rebuildMergeLocked() {
	if s.mergeDone != nil {
		close(s.mergeDone)
		s.mergeWG.Wait()
	}
	done := make(chan struct{})
	s.mergeDone = done

	chans := make([]<-chan []*hailstormpb.AgentUpdate, 0, len(s.connections))
	for _, conn := range s.connections {
		chans = append(chans, conn.updates)
	}
	merged := channerics.Merge(done, chans...)

	s.mergeWG.Add(1)
	go func() {
		defer s.mergeWG.Done()
		for {
			select {
			case <-done:
				return
			case updates, ok := <-merged:
				if !ok {
					return
				}
				if s.onUpdates != nil {
					s.onUpdates(updates)
				}
			}
		}
	}()
}

// Join implements HailstormServiceServer: it registers a new downstream
// connection for the duration of the stream and tears it down on return.
func (s *Server) Join(stream hailstormpb.HailstormService_JoinServer) error {
	connID := rand.Uint64()
	conn := newDownstreamConnection()

	s.mu.Lock()
	s.connections[connID] = conn
	s.rebuildMergeLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.connections, connID)
		s.rebuildMergeLocked()
		s.mu.Unlock()
	}()

	writerDone := make(chan struct{})
	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for {
			select {
			case <-writerDone:
				return
			case cmd := <-conn.commands:
				if err := stream.Send(cmd); err != nil {
					logrus.WithError(err).Warn("control: sending command to downstream connection failed")
					return
				}
			}
		}
	}()
	defer func() {
		close(writerDone)
		writerWG.Wait()
	}()

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		s.handleInbound(conn, msg)
	}
}

func (s *Server) handleInbound(conn *downstreamConnection, msg *hailstormpb.AgentMessage) {
	now := time.Now()
	for _, update := range msg.Updates {
		ts := now
		if update.Timestamp != nil {
			ts = update.Timestamp.AsTime()
		}
		conn.touch(update.AgentId, ts)
	}

	select {
	case conn.updates <- msg.Updates:
	default:
		logrus.Warn("control: dropping inbound update batch, connection update channel full")
	}

	s.mu.Lock()
	conns := make([]*downstreamConnection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.evictStale(now)
	}
}

// Dispatch routes cmd to every connection matching cmd.Target, per
// spec.md §4.8's selection rules: nil target or Group(ALL) reaches every
// connection, AgentId/Agents reach only connections that have reported that
// agent id. A specific target matching no connection is logged, not an
// error.
func (s *Server) Dispatch(cmd *hailstormpb.ControllerCommand) {
	s.mu.Lock()
	matched := make([]*downstreamConnection, 0, len(s.connections))
	for _, conn := range s.connections {
		if matchesTarget(conn, cmd.Target) {
			matched = append(matched, conn)
		}
	}
	s.mu.Unlock()

	if len(matched) == 0 {
		logrus.WithField("target", describeTarget(cmd.Target)).Warn("control: no downstream connection matches target")
		return
	}

	var wg sync.WaitGroup
	for _, conn := range matched {
		wg.Add(1)
		go func(c *downstreamConnection) {
			defer wg.Done()
			select {
			case c.commands <- cmd:
			default:
				logrus.Warn("control: dropping command, downstream connection command channel full")
			}
		}(conn)
	}
	wg.Wait()
}

func matchesTarget(conn *downstreamConnection, target *hailstormpb.Target) bool {
	if target == nil || target.Target == nil {
		return true
	}
	switch t := target.Target.(type) {
	case *hailstormpb.Target_Group:
		return t.Group == hailstormpb.AgentGroup_ALL
	case *hailstormpb.Target_AgentId:
		return conn.hasAgent(t.AgentId)
	case *hailstormpb.Target_Agents:
		if t.Agents == nil {
			return false
		}
		for _, id := range t.Agents.AgentIds {
			if conn.hasAgent(id) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func describeTarget(target *hailstormpb.Target) string {
	if target == nil || target.Target == nil {
		return "all"
	}
	switch t := target.Target.(type) {
	case *hailstormpb.Target_Group:
		return "group"
	case *hailstormpb.Target_AgentId:
		return "agent"
	case *hailstormpb.Target_Agents:
		return "agents"
	default:
		_ = t
		return "unknown"
	}
}
