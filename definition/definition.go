package definition

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/conveyor/model"
	"gopkg.in/yaml.v3"
)

type workflowDoc struct {
	Name string            `yaml:"name"`
	On   []triggerDoc      `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs yaml.Node         `yaml:"jobs"`
}

type triggerDoc struct {
	Kind     string   `yaml:"kind"`
	Branches []string `yaml:"branches"`
}

type jobDoc struct {
	Needs []string          `yaml:"needs"`
	Env   map[string]string `yaml:"env"`
	Steps []stepDoc         `yaml:"steps"`
}

type stepDoc struct {
	Name            string            `yaml:"name"`
	Kind            string            `yaml:"kind"`
	With            map[string]string `yaml:"with"`
	Env             map[string]string `yaml:"env"`
	If              string            `yaml:"if"`
	ContinueOnError bool              `yaml:"continue-on-error"`
	Retry           *retryDoc         `yaml:"retry"`
}

type retryDoc struct {
	Count           int    `yaml:"count"`
	IntervalSeconds int    `yaml:"interval-seconds"`
	Policy          string `yaml:"policy"`
}

// Parse reads a workflow document from yaml. Jobs are declared as a
// mapping, the document order of its keys is kept because it decides
// dispatch order between jobs that become ready together.
func Parse(data []byte) (*model.WorkflowDefinition, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing workflow yaml %w", err)
	}
	wf := &model.WorkflowDefinition{
		Name: doc.Name,
		Env:  doc.Env,
	}
	for _, trg := range doc.On {
		wf.On = append(wf.On, model.TriggerFilter{
			Kind:     trg.Kind,
			Branches: trg.Branches,
		})
	}
	jobs, err := parseJobs(&doc.Jobs)
	if err != nil {
		return nil, err
	}
	wf.Jobs = jobs
	return wf, nil
}

func parseJobs(node *yaml.Node) ([]model.JobDef, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("no jobs defined")
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jobs must be a mapping of job name to job")
	}
	jobs := make([]model.JobDef, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]
		var jd jobDoc
		if err := valueNode.Decode(&jd); err != nil {
			return nil, fmt.Errorf("error parsing job %s %w", keyNode.Value, err)
		}
		job := model.JobDef{
			Name:  keyNode.Value,
			Needs: jd.Needs,
			Env:   jd.Env,
		}
		for _, sd := range jd.Steps {
			step, err := parseStep(sd)
			if err != nil {
				return nil, fmt.Errorf("job %s: %w", keyNode.Value, err)
			}
			job.Steps = append(job.Steps, step)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseStep(sd stepDoc) (model.StepDef, error) {
	step := model.StepDef{
		Name:            sd.Name,
		Kind:            sd.Kind,
		With:            sd.With,
		Env:             sd.Env,
		If:              sd.If,
		ContinueOnError: sd.ContinueOnError,
	}
	if sd.Retry != nil {
		policy, err := parseRetryPolicy(sd.Retry.Policy)
		if err != nil {
			return model.StepDef{}, fmt.Errorf("step %s: %w", sd.Name, err)
		}
		step.Retry = &model.RetrySpec{
			Count:           sd.Retry.Count,
			IntervalSeconds: sd.Retry.IntervalSeconds,
			Policy:          policy,
		}
	}
	return step, nil
}

func parseRetryPolicy(policy string) (model.RetryPolicy, error) {
	switch strings.ToUpper(policy) {
	case "":
		return model.RETRY_POLICY_FIXED, nil
	case string(model.RETRY_POLICY_FIXED):
		return model.RETRY_POLICY_FIXED, nil
	case string(model.RETRY_POLICY_BACKOFF):
		return model.RETRY_POLICY_BACKOFF, nil
	default:
		return "", fmt.Errorf("unknown retry policy %s", policy)
	}
}
