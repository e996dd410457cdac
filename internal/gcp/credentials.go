package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// ScopePubSub is the OAuth scope needed to publish and manage topics.
const ScopePubSub = "https://www.googleapis.com/auth/pubsub"

// findDefaultCredentials is swapped in tests.
var findDefaultCredentials = google.FindDefaultCredentials

// Credentials is the outcome of ambient credential resolution.
type Credentials struct {
	ProjectID string
	Options   []option.ClientOption
}

// ResolveCredentials finds Application Default Credentials and settles the project ID.
// An explicit projectID wins over the one attached to the credentials.
// With PUBSUB_EMULATOR_HOST set no credentials are needed, but projectID is.
func ResolveCredentials(ctx context.Context, projectID string) (*Credentials, error) {
	if host := os.Getenv("PUBSUB_EMULATOR_HOST"); host != "" {
		if projectID == "" {
			return nil, fmt.Errorf("GCP_PROJECT_ID is required when PUBSUB_EMULATOR_HOST is set")
		}
		slog.Info("Using Pub/Sub emulator", "host", host, "project", projectID)
		return &Credentials{ProjectID: projectID}, nil
	}

	creds, err := findDefaultCredentials(ctx, ScopePubSub)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}

	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("no project ID configured and none attached to the default credentials")
	}

	return &Credentials{
		ProjectID: projectID,
		Options:   []option.ClientOption{option.WithCredentials(creds)},
	}, nil
}
