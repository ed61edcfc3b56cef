package sdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	fhirclient "github.com/SanteonNL/go-fhir-client"
	"github.com/jellydator/ttlcache/v3"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
)

type QuestionnaireLoader interface {
	// Load a questionnaire from a URL. It returns nil if the URL can't be handled by the loader (e.g. file does not exist), or an error if something went wrong (e.g. read or unmarshal error).
	Load(ctx context.Context, url string) (*fhir.Questionnaire, error)
}

var _ QuestionnaireLoader = FhirApiQuestionnaireLoader{}

// FhirApiQuestionnaireLoader loads questionnaires from a FHIR API, either by
// literal reference (Questionnaire/{id}) or by search URL.
type FhirApiQuestionnaireLoader struct {
	client fhirclient.Client
}

func NewFhirApiQuestionnaireLoader(client fhirclient.Client) FhirApiQuestionnaireLoader {
	return FhirApiQuestionnaireLoader{client: client}
}

func (f FhirApiQuestionnaireLoader) Load(ctx context.Context, u string) (*fhir.Questionnaire, error) {
	isLiteralReference, err := regexp.Match("Questionnaire/[a-zA-Z0-9_-]+", []byte(u))
	if err != nil {
		return nil, err
	}
	var result fhir.Questionnaire
	if isLiteralReference {
		if err := f.client.ReadWithContext(ctx, u, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}
	// Assume it's a search operation
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	var results fhir.Bundle
	if err := f.client.ReadWithContext(ctx, "Questionnaire", &results, fhirclient.AtUrl(parsedUrl)); err != nil {
		return nil, err
	}
	if len(results.Entry) != 1 {
		return nil, errors.New("expected 1 questionnaire, got " + fmt.Sprint(len(results.Entry)))
	}
	if err := json.Unmarshal(results.Entry[0].Resource, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal questionnaire (url=%s): %w", u, err)
	}
	return &result, nil
}

var _ QuestionnaireLoader = &CachingQuestionnaireLoader{}

// CachingQuestionnaireLoader caches loaded questionnaires for a period of
// time. Negotiation forms change rarely, so repeated requests for the same
// canonical URL should not hit the FHIR API every time.
type CachingQuestionnaireLoader struct {
	underlying QuestionnaireLoader
	cache      *ttlcache.Cache[string, *fhir.Questionnaire]
}

func NewCachingQuestionnaireLoader(underlying QuestionnaireLoader, ttl time.Duration) *CachingQuestionnaireLoader {
	return &CachingQuestionnaireLoader{
		underlying: underlying,
		cache: ttlcache.New[string, *fhir.Questionnaire](
			ttlcache.WithTTL[string, *fhir.Questionnaire](ttl),
		),
	}
}

func (c *CachingQuestionnaireLoader) Load(ctx context.Context, u string) (*fhir.Questionnaire, error) {
	if item := c.cache.Get(u); item != nil {
		return item.Value(), nil
	}
	questionnaire, err := c.underlying.Load(ctx, u)
	if err != nil {
		return nil, err
	}
	if questionnaire != nil {
		c.cache.Set(u, questionnaire, ttlcache.DefaultTTL)
	}
	return questionnaire, nil
}

var _ QuestionnaireLoader = &MemoryQuestionnaireLoader{}

// MemoryQuestionnaireLoader serves questionnaires from memory, for
// deployments that ship a fixed set of negotiation forms and for tests.
type MemoryQuestionnaireLoader struct {
	mux            sync.RWMutex
	questionnaires map[string]*fhir.Questionnaire
}

func NewMemoryQuestionnaireLoader() *MemoryQuestionnaireLoader {
	return &MemoryQuestionnaireLoader{
		questionnaires: make(map[string]*fhir.Questionnaire),
	}
}

// Add registers a questionnaire under the given URL.
func (m *MemoryQuestionnaireLoader) Add(url string, questionnaire *fhir.Questionnaire) {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.questionnaires[url] = questionnaire
}

func (m *MemoryQuestionnaireLoader) Load(_ context.Context, url string) (*fhir.Questionnaire, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()
	return m.questionnaires[url], nil
}
