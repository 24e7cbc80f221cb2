package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"orcamento/internal/amqp"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) InvalidateAll() int {
	f.calls++
	return 2
}

type fakeObserver struct {
	consumed    []error
	invalidated []string
}

func (f *fakeObserver) MessageConsumed(err error) {
	f.consumed = append(f.consumed, err)
}

func (f *fakeObserver) CacheInvalidated(trigger string) {
	f.invalidated = append(f.invalidated, trigger)
}

type fakeConsumer struct {
	msgs []*amqp.CargaConcluidaMessage
	errs []error
}

func (f *fakeConsumer) ConsumeCargasConcluidas(ctx context.Context, handler func(context.Context, *amqp.CargaConcluidaMessage) error) error {
	for _, m := range f.msgs {
		f.errs = append(f.errs, handler(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleCargaConcluida(t *testing.T) {
	tests := []struct {
		name       string
		refreshErr error
		wantErr    bool
	}{
		{"refresh ok", nil, false},
		{"refresh fails", errors.New("db down"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRefresher{err: tt.refreshErr}
			inv := &fakeInvalidator{}
			obs := &fakeObserver{}
			w := NewCargaWorker(r, inv, obs, nil)

			msg := amqp.NewCargaConcluidaMessage("run", "sqlite", []string{"fato_saldos"}, 1, time.Now())
			err := w.HandleCargaConcluida(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleCargaConcluida() error = %v, wantErr %v", err, tt.wantErr)
			}
			if inv.calls != 1 || r.calls != 1 {
				t.Errorf("invalidate calls = %d, refresh calls = %d", inv.calls, r.calls)
			}
			if len(obs.consumed) != 1 || (obs.consumed[0] != nil) != tt.wantErr {
				t.Errorf("observer consumed = %v", obs.consumed)
			}
			if len(obs.invalidated) != 1 || obs.invalidated[0] != "amqp" {
				t.Errorf("observer invalidated = %v", obs.invalidated)
			}
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := &fakeRefresher{}
	w := NewCargaWorker(r, nil, nil, nil)
	c := &fakeConsumer{msgs: []*amqp.CargaConcluidaMessage{
		amqp.NewCargaConcluidaMessage("a", "sqlite", nil, 0, time.Now()),
		amqp.NewCargaConcluidaMessage("b", "sqlite", nil, 0, time.Now()),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop")
	}
	if r.calls != 2 {
		t.Errorf("refresh calls = %d, want 2", r.calls)
	}
}
