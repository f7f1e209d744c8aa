package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/blobstore"
	"github.com/stretchr/testify/require"
)

func newTestAccessor(t *testing.T) (*Accessor, *blobstore.Store) {
	t.Helper()
	store := blobstore.New(fmt.Sprintf("mem://localhost/%s", t.Name()))
	return NewAccessor(store, nil), store
}

func TestReadMissingReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	accessor, _ := newTestAccessor(t)

	roster, active, err := accessor.Read(ctx, "conv1")
	require.NoError(t, err)
	require.Empty(t, roster)
	require.Empty(t, active)
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	accessor, _ := newTestAccessor(t)
	now := time.Now().UTC()

	roster := map[string]*careboard.PatientContext{
		"patient_4": careboard.NewPatientContext("conv1", "patient_4", now),
		"patient_2": careboard.NewPatientContext("conv1", "patient_2", now),
	}
	require.NoError(t, accessor.Write(ctx, "conv1", roster, "patient_4"))

	loaded, active, err := accessor.Read(ctx, "conv1")
	require.NoError(t, err)
	require.Equal(t, "patient_4", active)
	require.Len(t, loaded, 2)
	require.Equal(t, "patient_2", loaded["patient_2"].PatientID)
}

func TestWriteRejectsActiveOutsideRoster(t *testing.T) {
	ctx := context.Background()
	accessor, _ := newTestAccessor(t)

	roster := map[string]*careboard.PatientContext{
		"patient_1": careboard.NewPatientContext("conv1", "patient_1", time.Now().UTC()),
	}
	err := accessor.Write(ctx, "conv1", roster, "patient_9")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not in the roster")
}

func TestWriteAllowsNoActivePatient(t *testing.T) {
	ctx := context.Background()
	accessor, store := newTestAccessor(t)

	roster := map[string]*careboard.PatientContext{
		"patient_1": careboard.NewPatientContext("conv1", "patient_1", time.Now().UTC()),
	}
	require.NoError(t, accessor.Write(ctx, "conv1", roster, ""))

	data, err := store.Get(ctx, Path("conv1"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Nil(t, doc["active_patient_id"])
}

func TestLastUpdatedNeverDecreases(t *testing.T) {
	ctx := context.Background()
	accessor, _ := newTestAccessor(t)

	future := time.Now().UTC().Add(time.Hour)
	accessor.now = func() time.Time { return future }
	roster := map[string]*careboard.PatientContext{
		"patient_1": careboard.NewPatientContext("conv1", "patient_1", future),
	}
	require.NoError(t, accessor.Write(ctx, "conv1", roster, "patient_1"))

	accessor.now = time.Now
	require.NoError(t, accessor.Write(ctx, "conv1", roster, "patient_1"))

	doc, err := accessor.readDocument(ctx, "conv1")
	require.NoError(t, err)
	require.True(t, doc.LastUpdated.Equal(future))
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	accessor, _ := newTestAccessor(t)
	now := time.Now().UTC()

	first := careboard.NewPatientContext("conv1", "patient_1", now)
	require.NoError(t, accessor.Upsert(ctx, "conv1", first, "patient_1"))

	second := careboard.NewPatientContext("conv1", "patient_2", now)
	require.NoError(t, accessor.Upsert(ctx, "conv1", second, "patient_2"))

	roster, active, err := accessor.Read(ctx, "conv1")
	require.NoError(t, err)
	require.Equal(t, "patient_2", active)
	require.Len(t, roster, 2)
	require.False(t, roster["patient_2"].UpdatedAt.Before(now))
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	accessor, store := newTestAccessor(t)
	now := time.Now().UTC()

	roster := map[string]*careboard.PatientContext{
		"patient_4": careboard.NewPatientContext("conv1", "patient_4", now),
	}
	require.NoError(t, accessor.Write(ctx, "conv1", roster, "patient_4"))

	folder := "conv1/archive/20260314T092653"
	require.NoError(t, accessor.Archive(ctx, "conv1", folder))

	exists, err := store.Exists(ctx, Path("conv1"))
	require.NoError(t, err)
	require.False(t, exists)

	names, err := store.List(ctx, folder)
	require.NoError(t, err)
	require.Len(t, names, 1)
	require.Contains(t, names[0], "_patient_context_registry_archived.json")

	data, err := store.Get(ctx, folder+"/"+names[0])
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotEmpty(t, doc["archived_at"])
	require.Equal(t, "patient_4", doc["active_patient_id"])
}

func TestArchiveEmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	accessor, store := newTestAccessor(t)

	require.NoError(t, accessor.Archive(ctx, "conv1", "conv1/archive/20260314T092653"))

	names, err := store.List(ctx, "conv1/archive/20260314T092653")
	require.NoError(t, err)
	require.Empty(t, names)
}
