package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for MongoDB account repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. mmo_tiles
	Accounts   string // e.g. accounts
	Characters string // e.g. characters
	Counters   string // e.g. counters (for auto-increment)
}

// MongoAccountRepo implements AccountRepository on MongoDB backend.
type MongoAccountRepo struct {
	client      *mongo.Client
	accounts    *mongo.Collection
	characters  *mongo.Collection
	counterColl *mongo.Collection
}

type accountDoc struct {
	AccountID    uint64    `bson:"account_id"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	IsAdmin      bool      `bson:"is_admin"`
	PremiumUntil time.Time `bson:"premium_until,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	LastLogin    time.Time `bson:"last_login"`
}

func (d accountDoc) account() *Account {
	return &Account{
		ID:           d.AccountID,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		IsAdmin:      d.IsAdmin,
		PremiumUntil: d.PremiumUntil,
		CreatedAt:    d.CreatedAt,
		LastLogin:    d.LastLogin,
	}
}

type characterDoc struct {
	CharacterID uint64 `bson:"character_id"`
	AccountID   uint64 `bson:"account_id"`
	Name        string `bson:"name"`
	// NameLower для уникального индекса без учёта регистра
	NameLower string `bson:"name_lower"`
	IsAdmin   bool   `bson:"is_admin"`
}

func (d characterDoc) character() Character {
	return Character{ID: d.CharacterID, AccountID: d.AccountID, Name: d.Name, IsAdmin: d.IsAdmin}
}

// NewMongoAccountRepo establishes connection and returns repository.
func NewMongoAccountRepo(ctx context.Context, cfg MongoConfig) (*MongoAccountRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "mmo_tiles"
	}
	if cfg.Accounts == "" {
		cfg.Accounts = "accounts"
	}
	if cfg.Characters == "" {
		cfg.Characters = "characters"
	}
	if cfg.Counters == "" {
		cfg.Counters = "counters"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(cfg.Database)
	repo := &MongoAccountRepo{
		client:      client,
		accounts:    db.Collection(cfg.Accounts),
		characters:  db.Collection(cfg.Characters),
		counterColl: db.Collection(cfg.Counters),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *MongoAccountRepo) ensureIndexes(ctx context.Context) error {
	_, err := m.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("name_unique")},
		{Keys: bson.D{{Key: "account_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("accountid_unique")},
	})
	if err != nil {
		return err
	}
	_, err = m.characters.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name_lower", Value: 1}}, Options: options.Index().SetUnique(true).SetName("name_unique")},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "character_id", Value: 1}}},
	})
	return err
}

func (m *MongoAccountRepo) findAccount(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDoc
	err := m.accounts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.account(), nil
}

// GetAccountByName implements AccountRepository.
func (m *MongoAccountRepo) GetAccountByName(ctx context.Context, name string) (*Account, error) {
	return m.findAccount(ctx, bson.M{"name": normalize(name)})
}

// GetAccountByID implements AccountRepository.
func (m *MongoAccountRepo) GetAccountByID(ctx context.Context, id uint64) (*Account, error) {
	return m.findAccount(ctx, bson.M{"account_id": id})
}

// CreateAccount inserts a new document and returns created account.
func (m *MongoAccountRepo) CreateAccount(ctx context.Context, name, passwordHash string, isAdmin bool) (*Account, error) {
	nextID, err := m.nextSequence(ctx, "accountid")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	doc := accountDoc{
		AccountID:    nextID,
		Name:         normalize(name),
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		LastLogin:    now,
	}
	_, err = m.accounts.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, err
	}
	return doc.account(), nil
}

// CreateCharacter implements AccountRepository.
func (m *MongoAccountRepo) CreateCharacter(ctx context.Context, accountID uint64, name string) (*Character, error) {
	acc, err := m.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	nextID, err := m.nextSequence(ctx, "characterid")
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	doc := characterDoc{
		CharacterID: nextID,
		AccountID:   accountID,
		Name:        name,
		NameLower:   normalize(name),
		IsAdmin:     acc.IsAdmin,
	}
	_, err = m.characters.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrCharacterExists
	}
	if err != nil {
		return nil, err
	}
	ch := doc.character()
	return &ch, nil
}

// Characters implements AccountRepository.
func (m *MongoAccountRepo) Characters(ctx context.Context, accountID uint64) ([]Character, error) {
	cur, err := m.characters.Find(ctx, bson.M{"account_id": accountID},
		options.Find().SetSort(bson.D{{Key: "character_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []characterDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	list := make([]Character, 0, len(docs))
	for _, d := range docs {
		list = append(list, d.character())
	}
	return list, nil
}

// GetCharacterByName implements AccountRepository.
func (m *MongoAccountRepo) GetCharacterByName(ctx context.Context, name string) (*Character, error) {
	var doc characterDoc
	err := m.characters.FindOne(ctx, bson.M{"name_lower": normalize(name)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCharacterNotFound
	}
	if err != nil {
		return nil, err
	}
	ch := doc.character()
	return &ch, nil
}

// TouchLogin implements AccountRepository.
func (m *MongoAccountRepo) TouchLogin(ctx context.Context, accountID uint64, at time.Time) error {
	_, err := m.accounts.UpdateOne(ctx, bson.M{"account_id": accountID}, bson.M{"$set": bson.M{"last_login": at}})
	return err
}

// nextSequence atomically increments a counter and returns new value.
func (m *MongoAccountRepo) nextSequence(ctx context.Context, name string) (uint64, error) {
	res := m.counterColl.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return uint64(doc.Seq), nil
}

// Close terminates connection.
func (m *MongoAccountRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
