package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/wikifind/wikifind/internal/adapters/botapi"
)

// Registers or removes the bot's webhook with Telegram. Run manually after
// deploying to a new address.
//
//	TELEGRAM_BOT_TOKEN=... WEBHOOK_URL=... WEBHOOK_SECRET=... go run ./cmd/set-webhook
//	TELEGRAM_BOT_TOKEN=... go run ./cmd/set-webhook delete
func main() {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("No Telegram bot token provided")
	}

	action := "set"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	client, err := botapi.NewClient(httpClient, token)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram client: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch action {
	case "set":
		webhookURL := os.Getenv("WEBHOOK_URL")
		if webhookURL == "" {
			log.Fatal("No webhook URL provided")
		}
		webhookSecret := os.Getenv("WEBHOOK_SECRET")
		if webhookSecret == "" {
			log.Fatal("No webhook secret provided")
		}

		err := client.SetWebhook(ctx, webhookURL, webhookSecret)
		if err != nil {
			log.Fatalf("Failed to set webhook: %s", err)
		}
		log.Printf("Webhook set to %s", webhookURL)
	case "delete":
		err := client.DeleteWebhook(ctx)
		if err != nil {
			log.Fatalf("Failed to delete webhook: %s", err)
		}
		log.Print("Webhook deleted")
	default:
		log.Fatalf("Unknown action %q (want set or delete)", action)
	}
}
