package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract exercises the Store semantics every backend must satisfy.
// It is run against the in-memory store unconditionally and against the SQL
// and Mongo stores in their integration tests.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get missing account", func(t *testing.T) {
		_, err := store.GetAccount(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("get missing transaction", func(t *testing.T) {
		_, err := store.GetTransaction(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("adjust balance success advances version by one", func(t *testing.T) {
		acc, err := store.CreateAccount(ctx, 1000)
		require.NoError(t, err)
		require.Equal(t, int64(0), acc.Version)

		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			newVersion, err := ops.AdjustBalance(ctx, acc.ID, -400, 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), newVersion)
			return nil
		})
		require.NoError(t, err)

		got, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(600), got.Balance)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("adjust balance stale version conflicts", func(t *testing.T) {
		acc, err := store.CreateAccount(ctx, 1000)
		require.NoError(t, err)

		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			_, err := ops.AdjustBalance(ctx, acc.ID, -100, 0)
			return err
		})
		require.NoError(t, err)

		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			_, err := ops.AdjustBalance(ctx, acc.ID, -100, 0)
			return err
		})
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(900), got.Balance)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("adjust balance never goes negative", func(t *testing.T) {
		acc, err := store.CreateAccount(ctx, 100)
		require.NoError(t, err)

		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			_, err := ops.AdjustBalance(ctx, acc.ID, -500, 0)
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrVersionConflict)

		got, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.Balance)
		assert.Equal(t, int64(0), got.Version)
	})

	t.Run("adjust balance on missing account", func(t *testing.T) {
		err := store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			_, err := ops.AdjustBalance(ctx, "does-not-exist", 100, 0)
			return err
		})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("failed unit leaves nothing observable", func(t *testing.T) {
		sender, err := store.CreateAccount(ctx, 1000)
		require.NoError(t, err)
		receiver, err := store.CreateAccount(ctx, 0)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			if _, err := ops.AdjustBalance(ctx, sender.ID, -300, 0); err != nil {
				return err
			}
			if _, err := ops.AdjustBalance(ctx, receiver.ID, 300, 0); err != nil {
				return err
			}
			if _, err := ops.AppendTransaction(ctx, sender.ID, receiver.ID, 300); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		gotSender, err := store.GetAccount(ctx, sender.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), gotSender.Balance)
		assert.Equal(t, int64(0), gotSender.Version)

		gotReceiver, err := store.GetAccount(ctx, receiver.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), gotReceiver.Balance)

		txs, err := store.AccountTransactions(ctx, sender.ID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("committed unit is fully observable", func(t *testing.T) {
		sender, err := store.CreateAccount(ctx, 1000)
		require.NoError(t, err)
		receiver, err := store.CreateAccount(ctx, 50)
		require.NoError(t, err)

		var txID string
		err = store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
			if _, err := ops.AdjustBalance(ctx, sender.ID, -400, 0); err != nil {
				return err
			}
			if _, err := ops.AdjustBalance(ctx, receiver.ID, 400, 0); err != nil {
				return err
			}
			tx, err := ops.AppendTransaction(ctx, sender.ID, receiver.ID, 400)
			if err != nil {
				return err
			}
			txID = tx.ID
			return nil
		})
		require.NoError(t, err)

		gotSender, err := store.GetAccount(ctx, sender.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(600), gotSender.Balance)

		gotReceiver, err := store.GetAccount(ctx, receiver.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(450), gotReceiver.Balance)

		tx, err := store.GetTransaction(ctx, txID)
		require.NoError(t, err)
		assert.Equal(t, sender.ID, tx.SenderAccountID)
		assert.Equal(t, receiver.ID, tx.ReceiverAccountID)
		assert.Equal(t, int64(400), tx.Amount)
		assert.False(t, tx.CreatedAt.IsZero())

		senderTxs, err := store.AccountTransactions(ctx, sender.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, senderTxs, 1)
		assert.Equal(t, txID, senderTxs[0].ID)

		receiverTxs, err := store.AccountTransactions(ctx, receiver.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, receiverTxs, 1)
	})

	t.Run("account transactions pagination", func(t *testing.T) {
		a, err := store.CreateAccount(ctx, 1000)
		require.NoError(t, err)
		b, err := store.CreateAccount(ctx, 0)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			version := int64(i)
			err := store.Atomic(ctx, func(ctx context.Context, ops AtomicOps) error {
				if _, err := ops.AdjustBalance(ctx, a.ID, -10, version); err != nil {
					return err
				}
				if _, err := ops.AdjustBalance(ctx, b.ID, 10, version); err != nil {
					return err
				}
				_, err := ops.AppendTransaction(ctx, a.ID, b.ID, 10)
				return err
			})
			require.NoError(t, err)
		}

		page, err := store.AccountTransactions(ctx, a.ID, 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := store.AccountTransactions(ctx, a.ID, 10, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 3)

		beyond, err := store.AccountTransactions(ctx, a.ID, 10, 50)
		require.NoError(t, err)
		assert.Empty(t, beyond)
	})
}
