package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"veridoc.mx/infrastructure/logger"
)

func (repo *MongoRepository[T]) defaultContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (repo *MongoRepository[T]) FindByID(id string, opts ...*options.FindOneOptions) (*T, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	var result T
	err := repo.Model.FindOne(ctx, bson.M{"_id": id}, opts...).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error("mongo error occured while running FindByID", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "id",
			Data: id,
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...*options.FindOneOptions) (*T, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	var result T
	err := repo.Model.FindOne(ctx, filter, opts...).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error("mongo error occured while running FindOneByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "filter",
			Data: filter,
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(filter map[string]interface{}, opts ...*options.FindOptions) (*[]T, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	cursor, err := repo.Model.Find(ctx, filter, opts...)
	if err != nil {
		logger.Error("mongo error occured while running FindMany", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "filter",
			Data: filter,
		})
		return nil, err
	}
	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	parsed := payload.ParseModel().(*T)
	_, err := repo.Model.InsertOne(ctx, parsed)
	if err != nil {
		logger.Error("mongo error occured while running CreateOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, err
	}
	return parsed, nil
}

func (repo *MongoRepository[T]) UpdatePartialByID(id string, payload map[string]any) (int64, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateByID(ctx, id, bson.M{"$set": payload})
	if err != nil {
		logger.Error("mongo error occured while running UpdatePartialByID", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "id",
			Data: id,
		})
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (repo *MongoRepository[T]) UpdatePartialByFilter(filter map[string]interface{}, payload map[string]any) (int64, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateMany(ctx, filter, bson.M{"$set": payload})
	if err != nil {
		logger.Error("mongo error occured while running UpdatePartialByFilter", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "filter",
			Data: filter,
		})
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UpdateWithVersion applies payload to the document only if its version still
// matches, incrementing the version in the same write. Returns false when the
// document changed underneath the caller, who decides whether to re-read and
// retry.
func (repo *MongoRepository[T]) UpdateWithVersion(id string, version int64, payload map[string]any) (bool, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	payload["updatedAt"] = time.Now()
	result, err := repo.Model.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{"$set": payload, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		logger.Error("mongo error occured while running UpdateWithVersion", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "id",
			Data: id,
		})
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	ctx, cancel := repo.defaultContext()
	defer cancel()

	count, err := repo.Model.CountDocuments(ctx, filter)
	if err != nil {
		logger.Error("mongo error occured while running CountDocs", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "filter",
			Data: filter,
		})
		return 0, err
	}
	return count, nil
}
