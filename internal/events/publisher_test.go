package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1700000000000-0")
	}
	return cmd
}

func testRecord() *models.ProductRecord {
	return &models.ProductRecord{
		SKU:       "35518.16.0",
		URL:       "https://www.kravet.com/35518-16-0.html",
		BrandKey:  "kravet",
		Brand:     "Kravet",
		Name:      "Bellamy Linen",
		PriceUnit: models.DefaultPriceUnit,
		Availability: models.Availability{
			Status: models.StatusInStock,
		},
	}
}

func TestNewItemScraped(t *testing.T) {
	env := NewItemScraped(testRecord())

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", env.EventID.String())
	assert.Equal(t, EventTypeItemScraped, env.EventType)
	assert.Equal(t, Source, env.Source)
	assert.Equal(t, "35518.16.0", env.AggregateID())
	assert.False(t, env.Timestamp.IsZero())
}

func TestEnvelope_StreamValues(t *testing.T) {
	env := NewItemScraped(testRecord())

	values, err := env.StreamValues()
	require.NoError(t, err)

	assert.Equal(t, env.EventID.String(), values["event_id"])
	assert.Equal(t, EventTypeItemScraped, values["event_type"])
	assert.Equal(t, "35518.16.0", values["aggregate_id"])
	assert.Equal(t, "kravet", values["brand"])

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, "ITEM_SCRAPED", decoded["event_type"])
	assert.Equal(t, "kravet-scraper", decoded["source"])
	record := decoded["record"].(map[string]interface{})
	assert.Equal(t, "35518.16.0", record["sku"])
	assert.Equal(t, "yard", record["priceUnit"])
}

func TestStreamPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("publishes to configured stream", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		publisher := NewStreamPublisher(mockRedis, logger, PublisherConfig{MaxLen: 1000})

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			values := args.Values.(map[string]interface{})
			return args.Stream == DefaultStream &&
				args.MaxLen == 1000 &&
				args.Approx &&
				values["aggregate_id"] == "35518.16.0"
		})).Return(nil)

		id, err := publisher.Publish(ctx, NewItemScraped(testRecord()))

		require.NoError(t, err)
		assert.Equal(t, "1700000000000-0", id)
		mockRedis.AssertExpectations(t)
	})

	t.Run("returns redis failure", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		publisher := NewStreamPublisher(mockRedis, logger, PublisherConfig{Stream: "stream:test"})

		mockRedis.On("XAdd", ctx, mock.AnythingOfType("*redis.XAddArgs")).Return(errors.New("connection refused"))

		_, err := publisher.Publish(ctx, NewItemScraped(testRecord()))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish to redis")
		assert.Equal(t, "stream:test", publisher.Stream())
	})
}

type recordingEmitter struct {
	got []*Envelope
	err error
}

func (r *recordingEmitter) Emit(ctx context.Context, env *Envelope) error {
	r.got = append(r.got, env)
	return r.err
}

func TestFanout_Emit(t *testing.T) {
	ok := &recordingEmitter{}
	failing := &recordingEmitter{err: errors.New("disk full")}
	env := NewItemScraped(testRecord())

	err := Fanout{failing, ok}.Emit(context.Background(), env)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)
	assert.NoError(t, Fanout{}.Emit(context.Background(), env))
}
