package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/pkg/db/dbtest"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
)

func TestEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPurchaseOrderCreated,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   orderID,
			Data:          map[string]string{"order_number": "PO-1"},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(nil, enums.AggregatePurchaseOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.JSONEq(t, `{"order_number":"PO-1"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventDeliveryApplied,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   orderID,
			Data:          struct{}{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	rows, err := repo.ListByAggregate(nil, enums.AggregatePurchaseOrder, orderID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitValidatesInput(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	conn := dbtest.Open(t)
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     "order_created",
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
	})
	assert.Error(t, err)
}

func TestPublishBookkeeping(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
			EventType:     enums.EventStockDeficitDetected,
			AggregateType: enums.AggregateIngredient,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"n": i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("pubsub down")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "pubsub down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New("bad payload"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	published := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventPurchaseOrderCreated, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), PublishedAt: &old}
	fresh := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventPurchaseOrderCreated, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), PublishedAt: &recent}
	parked := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventDeliveryApplied, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), AttemptCount: 10, CreatedAt: old}
	pending := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventDeliveryApplied, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), AttemptCount: 1, CreatedAt: old}
	for _, row := range []models.OutboxEvent{published, fresh, parked, pending} {
		require.NoError(t, conn.Create(&row).Error)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().UTC().Add(-24*time.Hour), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("attempt_count ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, fresh.ID, remaining[0].ID)
	assert.Equal(t, pending.ID, remaining[1].ID)
}
