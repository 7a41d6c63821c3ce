package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	customerrors "github.com/tinylink/urlshortener/internal/errors"
	"github.com/tinylink/urlshortener/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// LinkCollection is the MongoDB collection holding link documents.
const LinkCollection = "links"

// MongoLinkRepository is the LinkRepository implementation on MongoDB.
// Code uniqueness comes from the unique index created by Migrate.
type MongoLinkRepository struct {
	client *mongo.Client
	links  *mongo.Collection
}

// NewMongoLinkRepository uses the links collection of the given database.
func NewMongoLinkRepository(client *mongo.Client, database string) *MongoLinkRepository {
	return &MongoLinkRepository{
		client: client,
		links:  client.Database(database).Collection(LinkCollection),
	}
}

func (r *MongoLinkRepository) Migrate(ctx context.Context) error {
	_, err := r.links.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uk_links_code"),
		},
		{
			Keys:    bson.D{{Key: "deleted", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_links_deleted_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create link indexes: %w", err)
	}
	return nil
}

func (r *MongoLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if _, err := r.links.InsertOne(ctx, link); err != nil {
		return translateMongoInsertError(link.Code, err)
	}
	return nil
}

func translateMongoInsertError(code string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", customerrors.ErrDuplicateShortCode, code)
	}
	return fmt.Errorf("failed to create link: %w", err)
}

func (r *MongoLinkRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.links.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check code %s: %w", code, err)
	}
	return n > 0, nil
}

func (r *MongoLinkRepository) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *MongoLinkRepository) GetActiveLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	return r.findOne(ctx, bson.M{"code": code, "deleted": false})
}

func (r *MongoLinkRepository) findOne(ctx context.Context, filter bson.M) (*models.Link, error) {
	var link models.Link
	if err := r.links.FindOne(ctx, filter).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}
	return &link, nil
}

// ListActiveLinks sorts on createdAt, then on _id whose ObjectID embeds the
// insertion time.
func (r *MongoLinkRepository) ListActiveLinks(ctx context.Context) ([]models.Link, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.links.Find(ctx, bson.M{"deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve links: %w", err)
	}
	links := []models.Link{}
	if err := cur.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	return links, nil
}

func (r *MongoLinkRepository) MarkDeleted(ctx context.Context, code string) error {
	res, err := r.links.UpdateOne(ctx, bson.M{"code": code}, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("failed to delete link %s: %w", code, err)
	}
	if res.MatchedCount == 0 {
		return customerrors.ErrShortCodeNotFound
	}
	return nil
}

func (r *MongoLinkRepository) RecordClick(ctx context.Context, code string, at time.Time) error {
	res, err := r.links.UpdateOne(ctx,
		bson.M{"code": code, "deleted": false},
		bson.M{
			"$inc": bson.M{"totalClicks": 1},
			"$set": bson.M{"lastClickedAt": at},
		})
	if err != nil {
		return fmt.Errorf("failed to record click for %s: %w", code, err)
	}
	if res.MatchedCount == 0 {
		return customerrors.ErrShortCodeNotFound
	}
	return nil
}

func (r *MongoLinkRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoLinkRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
