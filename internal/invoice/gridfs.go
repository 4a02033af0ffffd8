package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps invoices in a MongoDB GridFS bucket, one file per name.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database, bucketName string) (*GridFSStore, error) {
	b, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: b}, nil
}

func (s *GridFSStore) Save(ctx context.Context, name string, data []byte) error {
	old, err := s.fileIDs(ctx, name)
	if err != nil {
		return err
	}
	if _, err := s.bucket.UploadFromStream(name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	for _, id := range old {
		if err := s.bucket.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete old %s: %w", name, err)
		}
	}
	return nil
}

func (s *GridFSStore) Open(_ context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStreamByName(name, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *GridFSStore) fileIDs(ctx context.Context, name string) ([]primitive.ObjectID, error) {
	cur, err := s.bucket.Find(bson.D{{Key: "filename", Value: name}})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &files); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
