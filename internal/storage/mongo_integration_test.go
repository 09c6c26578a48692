//go:build integration

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Needs a MongoDB replica set (multi-document transactions), e.g.
// MONGO_URL="mongodb://127.0.0.1:27017/?replicaSet=rs0" go test -tags integration ./internal/storage
func TestMongoStoreContract(t *testing.T) {
	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		t.Skip("MONGO_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := OpenMongo(ctx, mongoURL)
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	dbName := "bankcore_test"
	require.NoError(t, client.Database(dbName).Drop(ctx))

	testStoreContract(t, NewMongoStore(client, dbName, zerolog.Nop()))
}
