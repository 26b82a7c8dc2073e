package store

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bsfilter-bot/internal/model"
)

// Mongo is the MongoDB rendition of the store namespace. Deployments that
// already run Mongo use it instead of Firebase; the layout maps one
// collection per top-level path.
type Mongo struct {
	client *mongo.Client
	files  *mongo.Collection
	users  *mongo.Collection
	tasks  *mongo.Collection
	logger *slog.Logger
}

type mongoUser struct {
	UserID int64 `bson:"user_id"`
	Active bool  `bson:"active"`
}

type mongoTask struct {
	Key string `bson:"key"`
	model.DeleteTask `bson:",inline"`
}

func NewMongo(ctx context.Context, uri string, logger *slog.Logger) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	db := client.Database("bsfilter")
	m := &Mongo{
		client: client,
		files:  db.Collection("files"),
		users:  db.Collection("users"),
		tasks:  db.Collection("delete_queue"),
		logger: logger.With(slog.String("component", "mongo")),
	}
	_, _ = m.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "unique_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = m.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return m, nil
}

func (m *Mongo) ListFiles(ctx context.Context) ([]model.FileRecord, error) {
	cur, err := m.files.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var records []model.FileRecord
	for cur.Next(ctx) {
		var rec model.FileRecord
		if err := cur.Decode(&rec); err != nil {
			m.logger.Warn("dropping undecodable file record", slog.Any("error", err))
			continue
		}
		if err := rec.Validate(); err != nil {
			m.logger.Warn("dropping malformed file record", slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}
	return records, cur.Err()
}

func (m *Mongo) GetFile(ctx context.Context, uniqueID string) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := m.files.FindOne(ctx, bson.M{"unique_id": uniqueID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *Mongo) PutFile(ctx context.Context, rec model.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := m.files.UpdateOne(ctx,
		bson.M{"unique_id": rec.UniqueID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) DeleteFile(ctx context.Context, uniqueID string) error {
	_, err := m.files.DeleteOne(ctx, bson.M{"unique_id": uniqueID})
	return err
}

func (m *Mongo) PutUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	_, err := m.users.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": mongoUser{UserID: userID, Active: true}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) ListUserIDs(ctx context.Context) ([]int64, error) {
	cur, err := m.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []int64
	for cur.Next(ctx) {
		var u mongoUser
		if err := cur.Decode(&u); err != nil {
			continue
		}
		if u.UserID > 0 {
			ids = append(ids, u.UserID)
		}
	}
	return ids, cur.Err()
}

func (m *Mongo) CountUsers(ctx context.Context) (int, error) {
	n, err := m.users.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (m *Mongo) PutDeleteTask(ctx context.Context, task model.DeleteTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	_, err := m.tasks.UpdateOne(ctx,
		bson.M{"key": task.Key()},
		bson.M{"$set": mongoTask{Key: task.Key(), DeleteTask: task}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) ListDeleteTasks(ctx context.Context) ([]model.DeleteTask, error) {
	cur, err := m.tasks.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var tasks []model.DeleteTask
	for cur.Next(ctx) {
		var t mongoTask
		if err := cur.Decode(&t); err != nil {
			m.logger.Warn("dropping undecodable delete task", slog.Any("error", err))
			continue
		}
		if err := t.DeleteTask.Validate(); err != nil {
			m.logger.Warn("dropping malformed delete task", slog.Any("error", err))
			continue
		}
		tasks = append(tasks, t.DeleteTask)
	}
	return tasks, cur.Err()
}

func (m *Mongo) RemoveDeleteTask(ctx context.Context, key string) error {
	_, err := m.tasks.DeleteOne(ctx, bson.M{"key": key})
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
