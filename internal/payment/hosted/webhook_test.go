package hosted

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func completedPayload(orderID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","metadata":{"order_id":"%s"}}}}`,
		orderID,
	))
}

func TestConstructEvent_ValidSignature(t *testing.T) {
	payload := completedPayload("ord-123")
	header := SignPayload(payload, testSecret, time.Now())

	ev, err := ConstructEvent(payload, header, testSecret)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_test_1", ev.Data.Object.ID)
	assert.Equal(t, "ord-123", ev.Data.Object.Metadata["order_id"])
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	payload := completedPayload("ord-123")
	header := SignPayload(payload, "whsec_other", time.Now())

	_, err := ConstructEvent(payload, header, testSecret)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	payload := completedPayload("ord-123")
	header := SignPayload(payload, testSecret, time.Now())

	tampered := completedPayload("ord-456")
	_, err := ConstructEvent(tampered, header, testSecret)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	payload := completedPayload("ord-123")
	header := SignPayload(payload, testSecret, time.Now().Add(-time.Hour))

	_, err := ConstructEvent(payload, header, testSecret)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_MalformedHeader(t *testing.T) {
	payload := completedPayload("ord-123")

	for _, header := range []string{"", "garbage", "t=notanumber,v1=ab", "v1=deadbeef"} {
		_, err := ConstructEvent(payload, header, testSecret)
		assert.ErrorIs(t, err, ErrBadSignature, "header %q", header)
	}
}

func TestConstructEvent_SecretRotation(t *testing.T) {
	payload := completedPayload("ord-123")

	// During rotation the sender stacks multiple v1 signatures in one
	// header; a bogus one must not break a valid one.
	header := SignPayload(payload, testSecret, time.Now()) + ",v1=00"

	_, err := ConstructEvent(payload, header, testSecret)
	require.NoError(t, err)
}

func TestConstructEvent_MalformedJSON(t *testing.T) {
	payload := []byte(`{"type":`)
	header := SignPayload(payload, testSecret, time.Now())

	_, err := ConstructEvent(payload, header, testSecret)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadSignature)
}
