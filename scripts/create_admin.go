package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// Seeds the admin account used by the triage console.
// Usage: go run scripts/create_admin.go [email] [password] [name]
func main() {
	_ = godotenv.Load()

	email := "admin@civichero.com"
	password := "admin123"
	name := "Admin"
	if len(os.Args) > 1 {
		email = os.Args[1]
	}
	if len(os.Args) > 2 {
		password = os.Args[2]
	}
	if len(os.Args) > 3 {
		name = os.Args[3]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("DB_URI")))
	if err != nil {
		fmt.Printf("Error connecting to MongoDB: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	admins := client.Database(os.Getenv("DB_NAME")).Collection("admins")

	count, err := admins.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		fmt.Printf("Error checking for existing admin: %v\n", err)
		os.Exit(1)
	}
	if count > 0 {
		fmt.Println("Admin already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	_, err = admins.InsertOne(ctx, bson.M{
		"name":      name,
		"email":     email,
		"password":  string(hash),
		"role":      "admin",
		"createdAt": now,
		"updatedAt": now,
	})
	if err != nil {
		fmt.Printf("Error creating admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Admin created successfully")
}
