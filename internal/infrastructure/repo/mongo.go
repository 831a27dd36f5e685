package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"farmcart-backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo keeps one document per order and one per wallet account. Bodies are stored as
// JSON strings so decimal amounts keep their exact text form.
type MongoRepo struct {
	client  *mongo.Client
	orders  *mongo.Collection
	wallets *mongo.Collection
}

type orderDoc struct {
	ID         string `bson:"_id"`
	CustomerID string `bson:"customerId"`
	Status     string `bson:"status"`
	CreatedAt  int64  `bson:"createdAt"`
	Body       string `bson:"body"`
}

type walletDoc struct {
	ID           string `bson:"_id"`
	Wallet       string `bson:"wallet"`
	Transactions string `bson:"transactions"`
	UpdatedAt    int64  `bson:"updatedAt"`
}

func NewMongoRepo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	r := &MongoRepo{client: client, orders: db.Collection("orders"), wallets: db.Collection("wallets")}
	_, err = r.orders.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return r, nil
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepo) PutOrder(ctx context.Context, o *domain.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	doc := orderDoc{ID: o.ID, CustomerID: o.CustomerID, Status: string(o.Status), CreatedAt: o.CreatedAt.UnixNano(), Body: string(body)}
	_, err = r.orders.ReplaceOne(ctx, bson.M{"_id": o.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepo) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	cur, err := r.orders.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.Order
	for cur.Next(ctx) {
		var doc orderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal([]byte(doc.Body), &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", doc.ID, err)
		}
		out = append(out, o)
	}
	return out, cur.Err()
}

func (r *MongoRepo) LoadOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	var doc orderDoc
	err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var o domain.Order
	if err := json.Unmarshal([]byte(doc.Body), &o); err != nil {
		return nil, false, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &o, true, nil
}

func (r *MongoRepo) PutWallet(ctx context.Context, s *domain.WalletSnapshot) error {
	wb, err := json.Marshal(s.Wallet)
	if err != nil {
		return err
	}
	tb, err := json.Marshal(s.Transactions)
	if err != nil {
		return err
	}
	doc := walletDoc{ID: s.Wallet.AccountID, Wallet: string(wb), Transactions: string(tb), UpdatedAt: s.Wallet.UpdatedAt.UnixNano()}
	_, err = r.wallets.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoRepo) LoadWallet(ctx context.Context, accountID string) (*domain.WalletSnapshot, bool, error) {
	var doc walletDoc
	err := r.wallets.FindOne(ctx, bson.M{"_id": accountID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s := &domain.WalletSnapshot{}
	if err := json.Unmarshal([]byte(doc.Wallet), &s.Wallet); err != nil {
		return nil, false, fmt.Errorf("decode wallet %s: %w", accountID, err)
	}
	if err := json.Unmarshal([]byte(doc.Transactions), &s.Transactions); err != nil {
		return nil, false, fmt.Errorf("decode transactions %s: %w", accountID, err)
	}
	return s, true, nil
}
