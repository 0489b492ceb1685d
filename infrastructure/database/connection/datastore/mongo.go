package datastore

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"veridoc.mx/infrastructure/logger"
)

var (
	UserModel              *mongo.Collection
	BiometricRecordModel   *mongo.Collection
	BiometricAuditLogModel *mongo.Collection

	client *mongo.Client
)

func ConnectMongo() {
	url := os.Getenv("DB_URL")

	if url == "" {
		logger.Error("mongo url missing")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(5)
	clientOpts.SetMaxPoolSize(10)

	var err error
	client, err = mongo.Connect(ctx, clientOpts)

	if err != nil {
		logger.Warning("an error occured while starting the database", logger.LoggerOptions{Key: "error", Data: err})
		return
	}

	db := client.Database(os.Getenv("DB_NAME"))
	setUpIndexes(ctx, db)

	logger.Info("connected to mongodb successfully")
}

// Set up the indexes for the database
func setUpIndexes(ctx context.Context, db *mongo.Database) {
	UserModel = db.Collection("Users")
	UserModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index(),
	}})

	BiometricRecordModel = db.Collection("BiometricRecords")
	BiometricRecordModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		// At most one active record per (user, type). The partial filter keeps
		// deactivated history out of the uniqueness constraint.
		Keys: bson.D{{Key: "userID", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
	}, {
		Keys:    bson.D{{Key: "userID", Value: 1}},
		Options: options.Index(),
	}})

	BiometricAuditLogModel = db.Collection("BiometricAuditLogs")
	BiometricAuditLogModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index(),
	}})

	logger.Info("mongodb indexes set up successfully")
}

func CleanUp() {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("error disconnecting from mongodb", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}
