package rentful_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentful-io/rentful-client/pkg/rentful"
)

func decodeDocument(t *testing.T, body string) map[string]interface{} {
	t.Helper()

	decoded, err := rentful.NewCodec(nil).Decode([]byte(body))
	require.NoError(t, err)

	document, ok := decoded.(map[string]interface{})
	require.True(t, ok)

	return document
}

func TestDecodeEmptyBody(t *testing.T) {
	t.Parallel()

	codec := rentful.NewCodec(nil)

	decoded, err := codec.Decode([]byte(""))
	require.NoError(t, err)
	assert.Nil(t, decoded)

	decoded, err = codec.Decode([]byte("  \n\t"))
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeFlattensAttributes(t *testing.T) {
	t.Parallel()

	document := decodeDocument(t, `{
		"data": {
			"id": "123",
			"type": "order",
			"attributes": {
				"number": 42,
				"status": "reserved"
			}
		}
	}`)

	data, ok := document["data"].(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, "123", data["id"])
	assert.Equal(t, "order", data["type"])
	assert.Equal(t, float64(42), data["number"])
	assert.Equal(t, "reserved", data["status"])
	assert.NotContains(t, data, "attributes")
}

func TestDecodePopulatesRelationshipsFromIncluded(t *testing.T) {
	t.Parallel()

	document := decodeDocument(t, `{
		"data": [{
			"id": "o1",
			"type": "order",
			"attributes": {"status": "concept"},
			"relationships": {
				"customer": {"data": {"id": "c1", "type": "customer"}}
			}
		}],
		"included": [{
			"id": "c1",
			"type": "customer",
			"attributes": {"name": "Jane"}
		}]
	}`)

	data, ok := document["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)

	order, ok := data[0].(map[string]interface{})
	require.True(t, ok)

	customer, ok := order["customer"].(map[string]interface{})
	require.True(t, ok, "relationship should be resolved to the included resource")

	assert.Equal(t, "c1", customer["id"])
	assert.Equal(t, "Jane", customer["name"])
	assert.NotContains(t, order, "relationships")
}

func TestDecodeLeavesUnresolvedReferences(t *testing.T) {
	t.Parallel()

	document := decodeDocument(t, `{
		"data": {
			"id": "o1",
			"type": "order",
			"attributes": {},
			"relationships": {
				"customer": {"data": {"id": "missing", "type": "customer"}}
			}
		},
		"included": []
	}`)

	data, ok := document["data"].(map[string]interface{})
	require.True(t, ok)

	customer, ok := data["customer"].(map[string]interface{})
	require.True(t, ok)

	// Only the raw reference survives when nothing in included matches.
	assert.Equal(t, "missing", customer["id"])
	assert.NotContains(t, customer, "name")
}

func TestDecodeResolvesNestedRelationshipsWithCycles(t *testing.T) {
	t.Parallel()

	// order -> customer -> order: the cycle must not recurse forever.
	document := decodeDocument(t, `{
		"data": {
			"id": "o1",
			"type": "order",
			"attributes": {},
			"relationships": {
				"customer": {"data": {"id": "c1", "type": "customer"}}
			}
		},
		"included": [{
			"id": "c1",
			"type": "customer",
			"attributes": {"name": "Jane"},
			"relationships": {
				"last_order": {"data": {"id": "o1", "type": "order"}}
			}
		}]
	}`)

	data, ok := document["data"].(map[string]interface{})
	require.True(t, ok)

	customer, ok := data["customer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Jane", customer["name"])
}

func TestDecodeTypesTimestampFields(t *testing.T) {
	t.Parallel()

	document := decodeDocument(t, `{
		"data": {
			"id": "o1",
			"type": "order",
			"attributes": {
				"created_at": "2024-03-01T10:30:00Z",
				"starts_on": "2024-03-05",
				"date": "2024-03-06",
				"stopped_at": 1709287800,
				"delivery_date": "not a date",
				"name_at_creation": 12.5
			}
		}
	}`)

	data, ok := document["data"].(map[string]interface{})
	require.True(t, ok)

	createdAt, ok := data["created_at"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), createdAt.UTC())

	startsOn, ok := data["starts_on"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), startsOn.UTC())

	_, ok = data["date"].(time.Time)
	assert.True(t, ok)

	stoppedAt, ok := data["stopped_at"].(time.Time)
	require.True(t, ok, "numeric timestamps are epoch seconds")
	assert.Equal(t, int64(1709287800), stoppedAt.Unix())

	// Unparseable strings under time-like keys stay strings.
	assert.Equal(t, "not a date", data["delivery_date"])

	// Numbers under keys that merely contain "_at" mid-key are untouched.
	assert.Equal(t, 12.5, data["name_at_creation"])
}

func TestEncodeRendersTimesAsUTC(t *testing.T) {
	t.Parallel()

	codec := rentful.NewCodec(nil)

	paris := time.FixedZone("CET", 3600)

	encoded, err := codec.Encode(map[string]interface{}{
		"starts_at": time.Date(2024, 3, 1, 11, 30, 0, 0, paris),
		"quantity":  2,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"starts_at": "2024-03-01T10:30:00Z", "quantity": 2}`, string(encoded))
}

func TestDecodeInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := rentful.NewCodec(nil).Decode([]byte("{not json"))
	require.Error(t, err)
}
