package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankcore/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

type accountDoc struct {
	ID        string    `bson:"_id"`
	Balance   int64     `bson:"balance"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type transactionDoc struct {
	ID                string    `bson:"_id"`
	SenderAccountID   string    `bson:"sender_account_id"`
	ReceiverAccountID string    `bson:"receiver_account_id"`
	Amount            int64     `bson:"amount"`
	CreatedAt         time.Time `bson:"created_at"`
}

// OpenMongo connects to MongoDB and verifies the connection. Multi-document
// transactions require a replica set deployment.
func OpenMongo(ctx context.Context, mongoURL string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb is not responding: %w", err)
	}

	return client, nil
}

// MongoStore implements Store on MongoDB. Conditional writes filter on both
// _id and version; the atomic unit is a server-side multi-document transaction.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
}

func NewMongoStore(client *mongo.Client, dbName string, logger zerolog.Logger) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
}

func (s *MongoStore) accounts() *mongo.Collection {
	return s.db.Collection(accountsCollection)
}

func (s *MongoStore) transactions() *mongo.Collection {
	return s.db.Collection(transactionsCollection)
}

func (s *MongoStore) CreateAccount(ctx context.Context, initialBalance int64) (*models.Account, error) {
	now := time.Now().UTC()
	doc := accountDoc{
		ID:        uuid.NewString(),
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.accounts().InsertOne(ctx, doc); err != nil {
		s.logger.Error().Err(err).Msg("Error creating account")
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &models.Account{
		ID:        doc.ID,
		Balance:   doc.Balance,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *MongoStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var doc accountDoc
	err := s.accounts().FindOne(ctx, bson.M{"_id": accountID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Error fetching account")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &models.Account{
		ID:        doc.ID,
		Balance:   doc.Balance,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *MongoStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var doc transactionDoc
	err := s.transactions().FindOne(ctx, bson.M{"_id": transactionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("Error fetching transaction")
		return nil, fmt.Errorf("database error: %w", err)
	}

	return transactionFromDoc(doc), nil
}

func (s *MongoStore) AccountTransactions(ctx context.Context, accountID string, limit, offset int) ([]*models.Transaction, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_account_id": accountID},
		bson.M{"receiver_account_id": accountID},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.transactions().Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Error fetching account transactions")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding transaction: %w", err)
		}
		transactions = append(transactions, transactionFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (s *MongoStore) Atomic(ctx context.Context, fn func(ctx context.Context, ops AtomicOps) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting mongo session")
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoAtomicOps{store: s})
	})
	return err
}

type mongoAtomicOps struct {
	store *MongoStore
}

func (o *mongoAtomicOps) AdjustBalance(ctx context.Context, accountID string, delta int64, expectedVersion int64) (int64, error) {
	filter := bson.M{"_id": accountID, "version": expectedVersion}
	if delta < 0 {
		// guards balance >= 0 inside the conditional write itself
		filter["balance"] = bson.M{"$gte": -delta}
	}

	res, err := o.store.accounts().UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"balance": delta, "version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if res.ModifiedCount == 0 {
		err := o.store.accounts().FindOne(ctx, bson.M{"_id": accountID}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrAccountNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("failed to probe account: %w", err)
		}
		return 0, ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

func (o *mongoAtomicOps) AppendTransaction(ctx context.Context, senderAccountID, receiverAccountID string, amount int64) (*models.Transaction, error) {
	doc := transactionDoc{
		ID:                uuid.NewString(),
		SenderAccountID:   senderAccountID,
		ReceiverAccountID: receiverAccountID,
		Amount:            amount,
		CreatedAt:         time.Now().UTC(),
	}

	if _, err := o.store.transactions().InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	return transactionFromDoc(doc), nil
}

func transactionFromDoc(doc transactionDoc) *models.Transaction {
	return &models.Transaction{
		ID:                doc.ID,
		SenderAccountID:   doc.SenderAccountID,
		ReceiverAccountID: doc.ReceiverAccountID,
		Amount:            doc.Amount,
		CreatedAt:         doc.CreatedAt,
	}
}
