package semconv

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is the allow-list of model directories scanned in the
// semantic-conventions repository. Order matters: when two categories define
// the same attribute, the earlier one wins.
var DefaultCategories = []string{
	"aws",
	"cassandra",
	"client",
	"cloud",
	"code",
	"container",
	"cpu",
	"db",
	"disk",
	"dns",
	"elasticsearch",
	"enduser",
	"error",
	"event",
	"file",
	"gen-ai",
	"graphql",
	"heroku",
	"host",
	"http",
	"jvm",
	"k8s",
	"linux",
	"log",
	"messaging",
	"network",
	"openai",
	"os",
	"peer",
	"process",
	"rpc",
	"server",
	"service",
	"system",
	"telemetry",
	"thread",
	"tls",
	"url",
}

// DisplayName returns the human-readable convention name for a file in a
// category directory.
func DisplayName(category, fileName string) string {
	switch category {
	case "db":
		return "Database Client"
	case "http":
		switch {
		case strings.Contains(fileName, "client"):
			return "HTTP Client"
		case strings.Contains(fileName, "server"):
			return "HTTP Server"
		default:
			return "HTTP"
		}
	}

	words := strings.FieldsFunc(category, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// modelFile is the subset of a semantic-conventions model file we read.
type modelFile struct {
	Groups []modelGroup `yaml:"groups"`
}

type modelGroup struct {
	Type       string           `yaml:"type"`
	MetricName string           `yaml:"metric_name"`
	Prefix     string           `yaml:"prefix"`
	Attributes []modelAttribute `yaml:"attributes"`
}

type modelAttribute struct {
	ID  string `yaml:"id"`
	Ref string `yaml:"ref"`
}

func parseModelFile(data []byte) (*modelFile, error) {
	var doc modelFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &doc, nil
}

// merge records every metric and attribute defined by doc under category.
// Existing names are never overwritten.
func (t *Table) merge(category string, doc *modelFile) {
	for _, group := range doc.Groups {
		if group.Type == "metric" {
			t.addMetric(group.MetricName, category)
		}
		for _, attr := range group.Attributes {
			t.addAttribute(attributeName(group.Prefix, attr), category)
		}
	}
}

func attributeName(prefix string, attr modelAttribute) string {
	switch {
	case attr.ID != "" && prefix != "":
		return prefix + "." + attr.ID
	case attr.ID != "":
		return attr.ID
	default:
		return attr.Ref
	}
}
