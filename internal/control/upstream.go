package control

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

const (
	outboundBuffer = 128
	maxBackoff     = 5 * time.Minute
	dialTimeout    = 10 * time.Second
)

// Client is the upstream half of the control plane (spec §4.9): a single
// reconnecting bidi stream to one parent address. On every successful
// connect it hands onConnect a fresh bounded outbound channel (replacing
// any previous registration, per spec), and delivers every inbound
// ControllerCommand to onCommand until the stream ends, at which point it
// reconnects from attempt 0.
type Client struct {
	target    string
	dialOpts  []grpc.DialOption
	onConnect func(outbound chan<- *hailstormpb.AgentMessage)
	onCommand func(*hailstormpb.ControllerCommand)

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewClient returns a Client dialing target (e.g. "parent.example:7100").
// If dialOpts is empty, it dials with insecure transport credentials,
// matching the teacher's own local daemon client.
func NewClient(target string, onConnect func(outbound chan<- *hailstormpb.AgentMessage), onCommand func(*hailstormpb.ControllerCommand), dialOpts ...grpc.DialOption) *Client {
	if len(dialOpts) == 0 {
		dialOpts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &Client{
		target:    target,
		dialOpts:  dialOpts,
		onConnect: onConnect,
		onCommand: onCommand,
		stop:      make(chan struct{}),
	}
}

// Start begins the connect/reconnect loop in its own goroutine.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop ends the connect/reconnect loop and waits for it to exit.
func (c *Client) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Client) run() {
	defer c.wg.Done()
	attempt := 0
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		conn, stream, err := c.dial()
		if err != nil {
			logrus.WithError(err).WithField("attempt", attempt).Warn("control: dial parent failed")
			if !c.sleepBackoff(attempt) {
				return
			}
			attempt++
			continue
		}

		attempt = 0
		c.serve(conn, stream)
	}
}

func (c *Client) dial() (*grpc.ClientConn, hailstormpb.HailstormService_JoinClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	opts := append([]grpc.DialOption{grpc.WithBlock()}, c.dialOpts...)
	conn, err := grpc.DialContext(ctx, c.target, opts...)
	if err != nil {
		return nil, nil, err
	}
	stream, err := hailstormpb.NewHailstormServiceClient(conn).Join(context.Background())
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, stream, nil
}

func (c *Client) serve(conn *grpc.ClientConn, stream hailstormpb.HailstormService_JoinClient) {
	defer conn.Close()

	outbound := make(chan *hailstormpb.AgentMessage, outboundBuffer)
	if c.onConnect != nil {
		c.onConnect(outbound)
	}

	writerDone := make(chan struct{})
	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for {
			select {
			case <-writerDone:
				return
			case <-c.stop:
				return
			case msg := <-outbound:
				if err := stream.Send(msg); err != nil {
					logrus.WithError(err).Warn("control: sending to parent failed")
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
		cmd, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				logrus.WithError(err).Warn("control: receiving from parent failed")
			}
			return
		}
		if c.onCommand != nil {
			c.onCommand(cmd)
		}
	}
}

// sleepBackoff waits min(2^attempt s + U(0,1000ms), 5m), returning false if
// Stop was called during the wait.
func (c *Client) sleepBackoff(attempt int) bool {
	timer := time.NewTimer(backoffDelay(attempt))
	defer timer.Stop()
	select {
	case <-c.stop:
		return false
	case <-timer.C:
		return true
	}
}

func backoffDelay(attempt int) time.Duration {
	const overflowGuard = 20 // 2^20s already dwarfs maxBackoff
	base := maxBackoff
	if attempt <= overflowGuard {
		base = (time.Duration(1) << attempt) * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(time.Second)))
	delay := base + jitter
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}
