package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"marketplace-payments/internal/infra/gateway"
)

// FakeGateway is a scriptable gateway.Gateway.
type FakeGateway struct {
	mu          sync.Mutex
	created     map[string]gateway.CreateRequest
	commitCalls int64
	seq         int64

	// Declined makes commits come back unauthorized.
	Declined bool
	// Pending makes commits report a payment that has not cleared yet.
	Pending bool
	// CommitErr, when set, is returned by Commit.
	CommitErr error
	// CreateNoToken simulates a gateway answering without token/url.
	CreateNoToken bool
	// AmountOverride, when non-zero, is reported instead of the created amount.
	AmountOverride int64

	// Entered receives once per Commit call before it proceeds; Proceed,
	// when non-nil, blocks Commit until it is closed or receives.
	Entered chan struct{}
	Proceed chan struct{}
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{created: make(map[string]gateway.CreateRequest)}
}

func (g *FakeGateway) Create(_ context.Context, req gateway.CreateRequest) (gateway.CreateResponse, error) {
	if g.CreateNoToken {
		return gateway.CreateResponse{}, nil
	}
	n := atomic.AddInt64(&g.seq, 1)
	token := fmt.Sprintf("tok_%d", n)

	g.mu.Lock()
	g.created[token] = req
	g.mu.Unlock()

	return gateway.CreateResponse{Token: token, URL: "https://gateway.test/pay/" + token}, nil
}

func (g *FakeGateway) Commit(ctx context.Context, token string) (gateway.CommitResponse, error) {
	atomic.AddInt64(&g.commitCalls, 1)

	if g.Entered != nil {
		g.Entered <- struct{}{}
	}
	if g.Proceed != nil {
		select {
		case <-g.Proceed:
		case <-ctx.Done():
			return gateway.CommitResponse{}, ctx.Err()
		}
	}
	if g.CommitErr != nil {
		return gateway.CommitResponse{}, g.CommitErr
	}

	g.mu.Lock()
	req, ok := g.created[token]
	g.mu.Unlock()
	if !ok {
		return gateway.CommitResponse{}, errors.New("unknown token")
	}

	resp := gateway.CommitResponse{
		Status:        gateway.StatusAuthorized,
		ResponseCode:  0,
		Amount:        req.Amount,
		BuyOrder:      req.BuyOrder,
		SessionID:     req.SessionID,
		PaymentMethod: "card",
	}
	if g.Declined {
		resp.Status = "FAILED"
		resp.ResponseCode = -1
	}
	if g.Pending {
		resp.Status = gateway.StatusPending
		resp.ResponseCode = -3
		resp.PaymentMethod = ""
	}
	if g.AmountOverride != 0 {
		resp.Amount = g.AmountOverride
	}
	return resp, nil
}

// Register makes a token known without going through Create.
func (g *FakeGateway) Register(token string, req gateway.CreateRequest) {
	g.mu.Lock()
	g.created[token] = req
	g.mu.Unlock()
}

func (g *FakeGateway) CommitCalls() int {
	return int(atomic.LoadInt64(&g.commitCalls))
}

// MemoryGenerator is a documents.Generator that records what it produced.
type MemoryGenerator struct {
	mu   sync.Mutex
	Docs map[string]string // ref -> type
	Fail bool
	seq  int
}

func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{Docs: make(map[string]string)}
}

func (g *MemoryGenerator) Generate(_ context.Context, docType string, _ map[string]interface{}) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Fail {
		return "", errors.New("renderer unavailable")
	}
	g.seq++
	ref := fmt.Sprintf("%s-%d", docType, g.seq)
	g.Docs[ref] = docType
	return ref, nil
}

func (g *MemoryGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Docs)
}

// Notification is one recorded notify call.
type Notification struct {
	UserID    uint
	EventType string
	Payload   map[string]interface{}
}

// RecordingNotifier records notifications synchronously.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []Notification
	Fail bool
}

func (n *RecordingNotifier) Notify(_ context.Context, userID uint, eventType string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notification{UserID: userID, EventType: eventType, Payload: payload})
	if n.Fail {
		return errors.New("notifier down")
	}
	return nil
}

// Events returns the event types sent to userID, in order.
func (n *RecordingNotifier) Events(userID uint) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.Sent {
		if s.UserID == userID {
			out = append(out, s.EventType)
		}
	}
	return out
}
