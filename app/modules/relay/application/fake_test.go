package relayservice

import (
	"context"
	"errors"
	"sync"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
)

// FakePendingSource serves settable pending queues.
type FakePendingSource struct {
	mu       sync.Mutex
	items    []questservice.PendingProof
	subs     []questservice.SubmissionView
	err      error
	subErr   error
	calls    int
	statuses []questdomain.SubmissionStatus
}

func (f *FakePendingSource) SetSubmissions(subs ...questservice.SubmissionView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = subs
}

func (f *FakePendingSource) SetSubmissionErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subErr = err
}

func (f *FakePendingSource) Set(items ...questservice.PendingProof) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *FakePendingSource) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakePendingSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakePendingSource) ListPendingProofs(ctx context.Context) ([]questservice.PendingProof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]questservice.PendingProof(nil), f.items...), nil
}

func (f *FakePendingSource) ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]questservice.SubmissionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if f.subErr != nil {
		return nil, f.subErr
	}
	return append([]questservice.SubmissionView(nil), f.subs...), nil
}

// FakeReviewChannel records delivered cards. Proofs listed in failFor fail.
type FakeReviewChannel struct {
	mu        sync.Mutex
	delivered []Card
	chats     []int64
	failFor   map[int64]bool
	block     chan struct{}
	entered   chan struct{}
}

var errDeliver = errors.New("send failed")

func (f *FakeReviewChannel) Deliver(ctx context.Context, chatID int64, card Card) error {
	if f.block != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[card.ProofID] {
		return errDeliver
	}
	f.delivered = append(f.delivered, card)
	f.chats = append(f.chats, chatID)
	return nil
}

func (f *FakeReviewChannel) Delivered() []Card {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Card(nil), f.delivered...)
}

func (f *FakeReviewChannel) setFail(proofID int64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor == nil {
		f.failFor = map[int64]bool{}
	}
	f.failFor[proofID] = fail
}

// FakeMessenger records sent texts per chat.
type FakeMessenger struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]bool
}

func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{sent: map[int64][]string{}, failFor: map[int64]bool{}}
}

func (f *FakeMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errDeliver
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}
