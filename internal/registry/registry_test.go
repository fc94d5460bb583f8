package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifyhub/pkg/notify"
)

type stubProcessor struct{ name string }

func (s stubProcessor) Name() string { return s.name }
func (s stubProcessor) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	return nil
}

func TestRegistry_AddRemoveRoundTrip(t *testing.T) {
	r, errs := New()
	require.Empty(t, errs)

	require.NoError(t, r.AddProcessor(stubProcessor{name: "a"}))
	require.NoError(t, r.RemoveProcessor("a"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r, _ := New()
	require.NoError(t, r.AddProcessor(stubProcessor{name: "a"}))

	err := r.AddProcessor(stubProcessor{name: "a"})
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len(), "registry must be unchanged after a rejected add")
}

func TestRegistry_RemoveMissingRejected(t *testing.T) {
	r, _ := New()
	err := r.RemoveProcessor("missing")
	assert.Error(t, err)
}

func TestRegistry_PreservesInsertionOrder(t *testing.T) {
	r, _ := New()
	require.NoError(t, r.AddProcessor(stubProcessor{name: "c"}))
	require.NoError(t, r.AddProcessor(stubProcessor{name: "a"}))
	require.NoError(t, r.AddProcessor(stubProcessor{name: "b"}))

	var names []string
	for _, p := range r.List() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegistry_RemoveAllProcessors(t *testing.T) {
	r, _ := New(stubProcessor{name: "a"}, stubProcessor{name: "b"})
	require.Equal(t, 2, r.Len())
	r.RemoveAllProcessors()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.List())
}

func TestRegistry_InitialSetRejectsDuplicates(t *testing.T) {
	r, errs := New(stubProcessor{name: "a"}, stubProcessor{name: "a"})
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, r.Len())
}
