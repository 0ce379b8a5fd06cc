package store

import (
	"encoding/json"

	"github.com/sells-group/visibility-cli/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilCounts(c []model.CompetitorCount) []model.CompetitorCount {
	if c == nil {
		return []model.CompetitorCount{}
	}
	return c
}

func marshalAnalysisLists(a *model.SiteAnalysis) (services, keyPhrases, competitors []byte, err error) {
	if services, err = json.Marshal(nonNil(a.Services)); err != nil {
		return nil, nil, nil, err
	}
	if keyPhrases, err = json.Marshal(nonNil(a.KeyPhrases)); err != nil {
		return nil, nil, nil, err
	}
	if competitors, err = json.Marshal(nonNil(a.Competitors)); err != nil {
		return nil, nil, nil, err
	}
	return services, keyPhrases, competitors, nil
}

func unmarshalAnalysisLists(a *model.SiteAnalysis, services, keyPhrases, competitors []byte) error {
	if err := json.Unmarshal(services, &a.Services); err != nil {
		return err
	}
	if err := json.Unmarshal(keyPhrases, &a.KeyPhrases); err != nil {
		return err
	}
	return json.Unmarshal(competitors, &a.Competitors)
}

func marshalReportLists(r *model.Report) (platformScores, competitors, allCompetitors []byte, err error) {
	scores := r.PlatformScores
	if scores == nil {
		scores = []model.PlatformScore{}
	}
	if platformScores, err = json.Marshal(scores); err != nil {
		return nil, nil, nil, err
	}
	if competitors, err = json.Marshal(nonNilCounts(r.Competitors)); err != nil {
		return nil, nil, nil, err
	}
	if allCompetitors, err = json.Marshal(nonNilCounts(r.AllCompetitors)); err != nil {
		return nil, nil, nil, err
	}
	return platformScores, competitors, allCompetitors, nil
}

func unmarshalReportLists(r *model.Report, platformScores, competitors, allCompetitors []byte) error {
	if err := json.Unmarshal(platformScores, &r.PlatformScores); err != nil {
		return err
	}
	if err := json.Unmarshal(competitors, &r.Competitors); err != nil {
		return err
	}
	return json.Unmarshal(allCompetitors, &r.AllCompetitors)
}
