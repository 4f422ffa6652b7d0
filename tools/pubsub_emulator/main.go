// Command pubsub_emulator creates the notification topic of the fetcher, and a subscription
// to read it, on a local pubsub emulator.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
)

func main() {
	projectID := flag.String("project", "projectID", "project of the topic")
	topicID := flag.String("topic", "fetched", "topic notified by the fetcher (--pubsub-topic)")
	host := flag.String("emulator-host", "localhost:8085", "address of the emulator")
	flag.Parse()

	ctx := context.Background()
	os.Setenv("PUBSUB_EMULATOR_HOST", *host)

	client, err := pubsub.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("pubsub.NewClient: %v", err)
	}
	defer client.Close()

	log.Printf("Create Topic : %s", *topicID)
	topic, err := client.CreateTopic(ctx, *topicID)
	if err != nil {
		log.Fatalf("pubsub.CreateTopic: %v", err)
	}

	log.Printf("Create Subscription : %s", *topicID)
	if _, err = client.CreateSubscription(ctx, *topicID, pubsub.SubscriptionConfig{
		Topic:             topic,
		AckDeadline:       10 * time.Second,
		RetentionDuration: 24 * time.Hour,
	}); err != nil {
		log.Fatalf("pubsub.CreateSubscription: %v", err)
	}
	log.Printf("Export PUBSUB_EMULATOR_HOST=%s before running the fetcher", *host)
}
