package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed describes one RSS/Atom source.
type Feed struct {
	Name      string  `yaml:"name"`
	URL       string  `yaml:"url"`
	Weight    float64 `yaml:"weight"`
	Local     bool    `yaml:"local"`
	TopicHint string  `yaml:"topicHint"`
}

type feedFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// DefaultFeeds is used when no feed file is configured.
var DefaultFeeds = []Feed{
	{Name: "OpenAI", URL: "https://openai.com/blog/rss/", Weight: 1.0, TopicHint: "product"},
	{Name: "Google AI Blog", URL: "https://blog.google/technology/ai/rss/", Weight: 0.9, TopicHint: "product"},
	{Name: "Anthropic", URL: "https://www.anthropic.com/news/rss.xml", Weight: 1.0, TopicHint: "product"},
	{Name: "DeepMind Blog", URL: "https://deepmind.google/blog/rss.xml", Weight: 0.9, TopicHint: "research"},
	{Name: "Hugging Face Blog", URL: "https://huggingface.co/blog/feed.xml", Weight: 0.8, TopicHint: "research"},
	{Name: "TechCrunch AI", URL: "https://techcrunch.com/tag/artificial-intelligence/feed/", Weight: 0.7},
	{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Weight: 0.6},
	{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Weight: 0.6},
	{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Weight: 0.7, TopicHint: "research"},
	{Name: "ITmedia AI+", URL: "https://rss.itmedia.co.jp/rss/2.0/aiplus.xml", Weight: 0.7, Local: true},
	{Name: "AINOW", URL: "https://ainow.ai/feed/", Weight: 0.5, Local: true},
}

// LoadFeeds reads the feed list from a YAML file. An empty path yields DefaultFeeds.
func LoadFeeds(path string) ([]Feed, error) {
	if path == "" {
		out := make([]Feed, len(DefaultFeeds))
		copy(out, DefaultFeeds)

		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}

	var ff feedFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing feeds file: %w", err)
	}

	feeds := make([]Feed, 0, len(ff.Feeds))

	for _, f := range ff.Feeds {
		if f.Name == "" || f.URL == "" {
			continue
		}

		f.Weight = clampWeight(f.Weight)
		feeds = append(feeds, f)
	}

	return feeds, nil
}

func clampWeight(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}
