//go:build integration

package natsutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func natsURL() string {
	if v := os.Getenv("NATS_URL"); v != "" {
		return v
	}
	return nats.DefaultURL
}

func TestNATS_PublishReachesSubscriber(t *testing.T) {
	nc, err := Connect(natsURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("integ.saved", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, Publish(context.Background(), nc, "integ.saved", savedEvent{File: "x.json", Title: "X"}))

	select {
	case m := <-ch:
		var got savedEvent
		require.NoError(t, json.Unmarshal(m.Data, &got))
		require.Equal(t, "x.json", got.File)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
