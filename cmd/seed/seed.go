package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)
	usersCollection := db.Collection("users")

	// Check if a coordinator already exists
	var existing models.User
	err = usersCollection.FindOne(context.Background(),
		bson.M{"role": models.RoleCoordinator}).Decode(&existing)
	if err == nil {
		fmt.Println("Coordinator account already exists:")
		fmt.Printf("   Username: %s\n", existing.Username)
		os.Exit(0)
	}

	username := os.Getenv("COORDINATOR_USERNAME")
	if username == "" {
		username = "coordinator"
	}

	password := os.Getenv("COORDINATOR_PASSWORD")
	if password == "" {
		password = "ChangeMe123!"
		fmt.Println("WARNING: Using default password. Set COORDINATOR_PASSWORD environment variable!")
	}

	email := os.Getenv("COORDINATOR_EMAIL")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	user := models.User{
		Username:     username,
		Name:         "Capstone Coordinator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleCoordinator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result, err := usersCollection.InsertOne(context.Background(), user)
	if err != nil {
		log.Fatalf("Failed to create coordinator: %v", err)
	}

	fmt.Println("Coordinator account created:")
	fmt.Printf("   ID: %v\n", result.InsertedID)
	fmt.Printf("   Username: %s\n", username)
}
