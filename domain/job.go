// Package domain holds the types shared by every component of the
// orchestrator: the job catalog, schedules, statuses and log records.
package domain

import (
	"fmt"
	"strings"
)

// RunFunc is the user-supplied callable for a job. A nil error is Success;
// any other error is captured as an ExceptionInfo and is eligible for retry.
type RunFunc func(cfg Config, logger Logger) error

// Job is an immutable catalog entry. Jobs are constructed once at startup
// and never mutated afterward.
type Job struct {
	Name           string
	TimeoutSeconds int
	Retries        int
	Dependencies   map[string]struct{}
	Schedule       []Schedule
	Config         Config
	Run            RunFunc
}

// DependsOn reports whether the job depends on the named job.
func (j Job) DependsOn(name string) bool {
	_, ok := j.Dependencies[name]
	return ok
}

// Catalog is the immutable set of registered jobs, keyed by name.
type Catalog struct {
	jobs map[string]Job
}

// NewCatalog validates and builds a Catalog from a list of jobs.
// Duplicate names and dangling dependency references are CatalogErrors.
func NewCatalog(jobs []Job) (*Catalog, error) {
	seen := make(map[string]struct{}, len(jobs))
	byName := make(map[string]Job, len(jobs))

	var dup []string
	for _, j := range jobs {
		if j.Name == "" {
			return nil, &CatalogError{Reason: "job name must not be empty"}
		}
		if _, ok := seen[j.Name]; ok {
			dup = append(dup, j.Name)
			continue
		}
		seen[j.Name] = struct{}{}
		byName[j.Name] = j
	}
	if len(dup) > 0 {
		return nil, &CatalogError{Reason: fmt.Sprintf("duplicate job names: %s", strings.Join(dup, ", "))}
	}

	for _, j := range jobs {
		for dep := range j.Dependencies {
			if _, ok := byName[dep]; !ok {
				return nil, &CatalogError{Reason: fmt.Sprintf("job %q depends on unknown job %q", j.Name, dep)}
			}
		}
		if j.TimeoutSeconds <= 0 {
			return nil, &CatalogError{Reason: fmt.Sprintf("job %q: timeout_seconds must be positive", j.Name)}
		}
		if j.Retries < 0 {
			return nil, &CatalogError{Reason: fmt.Sprintf("job %q: retries must not be negative", j.Name)}
		}
	}

	return &Catalog{jobs: byName}, nil
}

// Get returns the job by name, or false if it's not registered.
func (c *Catalog) Get(name string) (Job, bool) {
	j, ok := c.jobs[name]
	return j, ok
}

// Names returns the catalog's job names in no particular order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.jobs))
	for n := range c.jobs {
		names = append(names, n)
	}
	return names
}

// Len returns the number of registered jobs.
func (c *Catalog) Len() int {
	return len(c.jobs)
}
