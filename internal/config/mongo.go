package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "project_id", Value: 1}},
		},
	}
	_, err := usersCollection.Indexes().CreateMany(context.Background(), userIndexes)
	if err != nil {
		return err
	}

	projectsCollection := db.Collection("projects")
	projectIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "member_ids", Value: 1}},
		},
	}
	_, err = projectsCollection.Indexes().CreateMany(context.Background(), projectIndexes)
	if err != nil {
		return err
	}

	// Submissions: corpus queries filter on extracted text presence and
	// exclude the owning project; status reads hit _id directly.
	submissionsCollection := db.Collection("submissions")
	submissionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "chapter", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "author_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "plagiarism.status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}
	_, err = submissionsCollection.Indexes().CreateMany(context.Background(), submissionIndexes)
	if err != nil {
		return err
	}

	notificationsCollection := db.Collection("notifications")
	notificationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err = notificationsCollection.Indexes().CreateMany(context.Background(), notificationIndexes)
	if err != nil {
		return err
	}

	return nil
}
