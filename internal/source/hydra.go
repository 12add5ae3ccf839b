// Package source implements unnix's build-farm clients: the GetOutputs
// contract that resolves a manifest package attribute to a set of
// named store-path outputs for a specific system.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/httpclient"
	"github.com/unnix/unnix/internal/storepath"
)

// Hydra identifies a Hydra build-farm jobset to resolve packages
// against, e.g. domain="hydra.nixos.org" project="nixpkgs" jobset="unstable".
type Hydra struct {
	Domain  string
	Project string
	Jobset  string

	// JobTemplate names the job within Project/Jobset, with
	// "{attribute}" and "{system}" substituted in before querying.
	// Empty means "{attribute}.{system}", matching Hydra's own
	// multi-system job-naming convention.
	JobTemplate string
}

// defaultJobTemplate is used when a manifest's hydra block omits
// "job ...".
const defaultJobTemplate = "{attribute}.{system}"

// jobPlaceholderRe matches every "{...}" token in a job template, so
// expandJobTemplate can reject any placeholder it doesn't recognize.
var jobPlaceholderRe = regexp.MustCompile(`\{[^{}]*\}`)

// expandJobTemplate substitutes "{attribute}" and "{system}" into
// tmpl, failing with a structured error if tmpl contains any other
// placeholder.
func expandJobTemplate(tmpl, attribute, system string) (string, error) {
	var badErr error
	expanded := jobPlaceholderRe.ReplaceAllStringFunc(tmpl, func(token string) string {
		switch token {
		case "{attribute}":
			return attribute
		case "{system}":
			return system
		default:
			if badErr == nil {
				badErr = &errs.ConfigError{Message: fmt.Sprintf("unknown job template placeholder %q", token)}
			}
			return token
		}
	})
	if badErr != nil {
		return "", badErr
	}
	return expanded, nil
}

// buildOutputsResponse mirrors Hydra's
// "/job/<project>/<jobset>/<job>/latest-for/<system>" JSON body.
type buildOutputsResponse struct {
	BuildOutputs map[string]struct {
		Path string `json:"path"`
	} `json:"buildoutputs"`
}

// GetOutputs resolves attribute on system to its named store-path
// outputs by querying Hydra's latest successful build for that job.
// The URL shape is unnix's own redesign of the original's
// "/job/<project>/<jobset>/<job>/latest" endpoint to
// "/job/<project>/<jobset>/<job>/latest-for/<system>", which
// disambiguates multi-system jobsets without relying on Hydra's
// job-name convention alone.
func (h Hydra) GetOutputs(ctx context.Context, attribute, system string) (map[string]storepath.Path, error) {
	tmpl := h.JobTemplate
	if tmpl == "" {
		tmpl = defaultJobTemplate
	}
	job, err := expandJobTemplate(tmpl, attribute, system)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/job/%s/%s/%s/latest-for/%s",
		h.Domain, h.Project, h.Jobset, job, system)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: querying %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &errs.NotFoundError{What: fmt.Sprintf("%s on %s", attribute, system)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.ProtocolError{URL: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var parsed buildOutputsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &errs.ProtocolError{URL: url, Err: fmt.Errorf("decoding response: %w", err)}
	}

	outputs := make(map[string]storepath.Path, len(parsed.BuildOutputs))
	for name, out := range parsed.BuildOutputs {
		p, err := storepath.FromFull(out.Path)
		if err != nil {
			return nil, &errs.ProtocolError{URL: url, Err: fmt.Errorf("output %q: %w", name, err)}
		}
		outputs[name] = p
	}
	return outputs, nil
}
