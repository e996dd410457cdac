// Package gcp provides utilities for interacting with Google Cloud Platform services.
package gcp

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinTopicIDLength and MaxTopicIDLength bound a Pub/Sub topic ID.
	MinTopicIDLength = 3
	MaxTopicIDLength = 255
)

// topicIDPattern: starts with a letter, then letters, digits, and - _ . ~ + %
var topicIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_.~+%]*$`)

// ValidateTopicID checks a topic ID against the Pub/Sub resource naming rules.
func ValidateTopicID(topicID string) error {
	if len(topicID) < MinTopicIDLength || len(topicID) > MaxTopicIDLength {
		return fmt.Errorf("topic ID must be between %d and %d characters", MinTopicIDLength, MaxTopicIDLength)
	}
	if strings.HasPrefix(strings.ToLower(topicID), "goog") {
		return fmt.Errorf("topic ID must not start with \"goog\"")
	}
	if !topicIDPattern.MatchString(topicID) {
		return fmt.Errorf("topic ID %q contains invalid characters or does not start with a letter", topicID)
	}
	return nil
}

// TopicPath returns the fully qualified topic name.
// Format: projects/{project}/topics/{topic}.
func TopicPath(projectID, topicID string) string {
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
}

// ParseTopicName splits a fully qualified topic name into its project and
// topic ID. Anything else is returned unchanged as the topic ID with an empty project.
func ParseTopicName(name string) (projectID, topicID string) {
	parts := strings.Split(name, "/")
	if len(parts) == 4 && parts[0] == "projects" && parts[2] == "topics" {
		return parts[1], parts[3]
	}
	return "", name
}
