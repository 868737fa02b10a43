package models

import "time"

type BrandStats struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Scraped int    `json:"scraped"`
	Saved   int    `json:"saved"`
	Errors  int    `json:"errors"`
}

// CrawlStats is owned by the crawl coordinator. Readers get copies via Clone.
type CrawlStats struct {
	SessionState string         `json:"session_state"`
	Scraped      int            `json:"scraped"`
	Saved        int            `json:"saved"`
	Errors       int            `json:"errors"`
	ErrorsByKind map[string]int `json:"errors_by_kind"`
	Brands       []*BrandStats  `json:"brands"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

func NewCrawlStats(brands []*BrandStats) *CrawlStats {
	return &CrawlStats{
		ErrorsByKind: make(map[string]int),
		Brands:       brands,
		StartedAt:    time.Now(),
	}
}

func (s *CrawlStats) Brand(key string) *BrandStats {
	for _, b := range s.Brands {
		if b.Key == key {
			return b
		}
	}
	return nil
}

func (s *CrawlStats) Clone() *CrawlStats {
	out := *s
	out.ErrorsByKind = make(map[string]int, len(s.ErrorsByKind))
	for k, v := range s.ErrorsByKind {
		out.ErrorsByKind[k] = v
	}
	out.Brands = make([]*BrandStats, len(s.Brands))
	for i, b := range s.Brands {
		cp := *b
		out.Brands[i] = &cp
	}
	return &out
}
