package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsInDependencyOrder(t *testing.T) {
	var started, stopped []string
	dep := func(name string, requires ...string) *Dependency {
		return &Dependency{
			Name:     name,
			Requires: requires,
			OnStart:  func(context.Context) error { started = append(started, name); return nil },
			OnStop:   func(context.Context) error { stopped = append(stopped, name); return nil },
		}
	}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(dep("http", "postgres", "redis"))
	s.AddDependency(dep("redis"))
	s.AddDependency(dep("postgres", "migrations"))
	s.AddDependency(dep("migrations"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"migrations", "postgres", "redis", "http"}, started)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "http", stopped[0])
	assert.ElementsMatch(t, []string{"http", "postgres", "redis", "migrations"}, stopped)
	assert.Less(t, indexOf(stopped, "postgres"), indexOf(stopped, "migrations"))
}

func TestStartup_RetriesUntilDependencyComesUp(t *testing.T) {
	calls := 0
	s := NewStartup(testLogger(), 3)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{
		Name: "postgres",
		OnStart: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{Name: "kafka", OnStart: func(context.Context) error { return errors.New("no brokers") }})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("kafka"))
}

func TestStartup_UnknownAndCyclicDependencies(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"missing"}})
	assert.Error(t, s.Start(context.Background()))

	s = NewStartup(testLogger(), 1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"b"}})
	s.AddDependency(&Dependency{Name: "b", Requires: []string{"a"}})
	assert.Error(t, s.Start(context.Background()))
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
