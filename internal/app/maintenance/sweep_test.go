package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/calebmorten/shiftrelief/internal/services"
)

type fakeEngine struct {
	expirable []string
	listErr   error
	failIDs   map[string]error
	expired   []string
}

func (f *fakeEngine) ListExpirable(context.Context) ([]string, error) {
	return f.expirable, f.listErr
}

func (f *fakeEngine) ExpireRequest(_ context.Context, requestID string) (services.RequestDTO, error) {
	if err := f.failIDs[requestID]; err != nil {
		return services.RequestDTO{}, err
	}
	f.expired = append(f.expired, requestID)
	return services.RequestDTO{ID: requestID}, nil
}

func TestRunOnceExpiresAllCandidates(t *testing.T) {
	engine := &fakeEngine{expirable: []string{"a", "b", "c"}}
	sweeper, err := NewSweeper(engine)
	require.NoError(t, err)

	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.Equal(t, []string{"a", "b", "c"}, engine.expired)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	boom := errors.New("row locked")
	engine := &fakeEngine{
		expirable: []string{"a", "b", "c"},
		failIDs:   map[string]error{"b": boom},
	}
	sweeper, err := NewSweeper(engine)
	require.NoError(t, err)

	err = sweeper.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.ErrorIs(t, err, boom)

	// The failing row does not stop the rest of the batch.
	require.Equal(t, []string{"a", "c"}, engine.expired)
}

func TestRunOncePropagatesListError(t *testing.T) {
	boom := errors.New("db down")
	sweeper, err := NewSweeper(&fakeEngine{listErr: boom})
	require.NoError(t, err)

	require.ErrorIs(t, sweeper.RunOnce(context.Background()), boom)
}

func TestNewSweeperRequiresEngine(t *testing.T) {
	_, err := NewSweeper(nil)
	require.Error(t, err)
}

func TestWithScheduleOverridesDefault(t *testing.T) {
	sweeper, err := NewSweeper(&fakeEngine{}, WithSchedule("@every 5m"))
	require.NoError(t, err)
	require.Equal(t, "@every 5m", sweeper.schedule)

	require.NoError(t, sweeper.Start())
	<-sweeper.Stop().Done()
}
