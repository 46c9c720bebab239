package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishToFakeServer(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer func() { _ = srv.Close() }()

	_, err := srv.GServer.CreateTopic(ctx, &pubsubpb.Topic{Name: "projects/demo/topics/content"})
	require.NoError(t, err)

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	pub, err := Dial(ctx, "demo", "content", option.WithGRPCConn(conn))
	require.NoError(t, err)

	id, err := pub.Publish(ctx, "content.created", map[string]any{"id": 7})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "content.created", msgs[0].Attributes[EventAttribute])
	var body map[string]int
	require.NoError(t, json.Unmarshal(msgs[0].Data, &body))
	require.Equal(t, 7, body["id"])
}

func TestPublishWithoutPublisher(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "content.created", "x")
	require.Error(t, err)

	var nilPub *Publisher
	require.NoError(t, nilPub.Close())
}

func TestDialRequiresProjectAndTopic(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), "", "topic")
	require.Error(t, err)
	_, err = Dial(context.Background(), "project", "")
	require.Error(t, err)
}
