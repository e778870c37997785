package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	apperrors "freight-portal/pkg/errors"
)

func TestCreateAssignsIDAndVersion(t *testing.T) {
	m := NewMockProvider(map[string]string{"Branch": "branchId"})

	rec, err := m.CreateRecord(context.Background(), "Branch", entities.Record{"branchName": "Karachi"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), rec["branchId"])
	assert.Equal(t, float64(1), rec["version"])

	list, err := m.ListRecords(context.Background(), "Branch", integrations.DefaultListRequest())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateChecksVersion(t *testing.T) {
	m := NewMockProvider(map[string]string{"Branch": "branchId"})
	m.Seed("Branch", entities.Record{"branchId": float64(5), "branchName": "Old", "version": float64(3)})

	_, err := m.UpdateRecord(context.Background(), "Branch", entities.Record{"branchId": float64(5), "version": float64(2)})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	rec, err := m.UpdateRecord(context.Background(), "Branch", entities.Record{"branchId": float64(5), "branchName": "New", "version": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "New", rec["branchName"])
	assert.Equal(t, float64(4), rec["version"])
}

func TestDeleteUnknownIsDeleteError(t *testing.T) {
	m := NewMockProvider(nil)

	err := m.DeleteRecord(context.Background(), "Branch", "42")
	var delErr *apperrors.DeleteError
	require.True(t, errors.As(err, &delErr))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRejectAndShouldFail(t *testing.T) {
	m := NewMockProvider(map[string]string{"Branch": "branchId"})
	m.Reject = func(_ string, p entities.Record) error {
		if p["branchName"] == "bad" {
			return errors.New("bad name")
		}
		return nil
	}

	_, err := m.CreateRecord(context.Background(), "Branch", entities.Record{"branchName": "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad name")

	m.ShouldFail = true
	_, err = m.ListRecords(context.Background(), "Branch", integrations.DefaultListRequest())
	require.Error(t, err)
	assert.Equal(t, 2, m.TotalCalls())
}
