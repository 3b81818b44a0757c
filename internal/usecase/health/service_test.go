package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) Ping(ctx context.Context) error        { return f(ctx) }
func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func up(context.Context) error { return nil }

func failing(msg string) checkFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         checkFunc
		components map[string]Checker
		wantStatus Status
		wantChecks map[string]CheckResult
	}{
		{
			name:       "all healthy",
			db:         up,
			components: map[string]Checker{"embedding": checkFunc(up), "rerank": checkFunc(up)},
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"database": CheckOK, "embedding": CheckOK, "rerank": CheckOK},
		},
		{
			name:       "database down",
			db:         failing("connection refused"),
			components: map[string]Checker{"embedding": checkFunc(up)},
			wantStatus: Degraded,
			wantChecks: map[string]CheckResult{"database": CheckError, "embedding": CheckOK},
		},
		{
			name:       "reranker unauthorized",
			db:         up,
			components: map[string]Checker{"embedding": checkFunc(up), "rerank": failing("401")},
			wantStatus: Degraded,
			wantChecks: map[string]CheckResult{"database": CheckOK, "embedding": CheckOK, "rerank": CheckError},
		},
		{
			name:       "nil component skipped",
			db:         up,
			components: map[string]Checker{"rerank": nil},
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"database": CheckOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.db)
			for name, c := range tt.components {
				svc.With(name, c)
			}
			r := svc.Check(context.Background())
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantChecks, r.Checks)
		})
	}
}

func TestCheck_SlowComponentTimesOut(t *testing.T) {
	slow := checkFunc(func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	svc := New(checkFunc(up)).With("embedding", slow).WithTimeout(20 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, CheckError, r.Checks["embedding"])
	assert.Equal(t, Degraded, r.Status)
}
