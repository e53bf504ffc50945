// Package posting holds the job-record model and the rule-based parser that
// segments raw ad text into structured records.
package posting

type Status string

const (
	StatusOpen    Status = "Open"
	StatusAwarded Status = "Awarded"
	StatusUnknown Status = "Unknown"
)

// JobRecord is one parsed freelance task posting. RawText reproduces the
// source segment byte for byte; nothing after parsing may rewrite it.
type JobRecord struct {
	Title           string   `json:"title"`
	Status          Status   `json:"status"`
	PostedTime      string   `json:"posted_time"`
	EndsTime        string   `json:"ends_time"`
	Budget          string   `json:"budget"`
	PaymentTerms    string   `json:"payment_terms"`
	ExperienceLevel string   `json:"experience_level"`
	Description     string   `json:"description"`
	Requirements    []string `json:"requirements"`
	Deliverables    []string `json:"deliverables"`
	RawText         string   `json:"raw_text"`
}

// Document is the parse result for one input file.
type Document struct {
	Metadata struct {
		SourceFile     string `json:"source_file"`
		TotalJobs      int    `json:"total_jobs"`
		ConversionDate string `json:"conversion_date"`
	} `json:"metadata"`
	Jobs []JobRecord `json:"jobs"`
}
