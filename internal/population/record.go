// Package population moves classifier populations in and out of tabular
// exports and runs the read-only per-classifier passes the learning loop
// needs over a whole population.
package population

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"elcs/internal/classifier"
	"elcs/internal/condition"
)

// Export column headers, in order.
const (
	ColCondition       = "Condition"
	ColPhenotype       = "Phenotype"
	ColFitness         = "Fitness"
	ColAccuracy        = "Accuracy"
	ColNumerosity      = "Numerosity"
	ColMatchCount      = "Match Count"
	ColCorrectCount    = "Correct Count"
	ColAveMatchSetSize = "Ave Match Set Size"
	ColInitTimeStamp   = "Init Time Stamp"
	ColTimeStampGA     = "Time Stamp GA"
)

// Headers is the header row of every export.
var Headers = []string{
	ColCondition, ColPhenotype, ColFitness, ColAccuracy, ColNumerosity,
	ColMatchCount, ColCorrectCount, ColAveMatchSetSize, ColInitTimeStamp, ColTimeStampGA,
}

var bracketPattern = regexp.MustCompile(`\[(.*?)\]`)

// SplitCondition returns the bracketed expressions of a "[expr][dc]..." cell,
// or nil when the cell has none.
func SplitCondition(cell string) []string {
	matches := bracketPattern.FindAllStringSubmatch(cell, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Record is one exported classifier.
type Record struct {
	Condition       string
	Phenotype       string
	Fitness         float64
	Accuracy        float64
	Numerosity      int
	MatchCount      int
	CorrectCount    int
	AveMatchSetSize float64
	InitTimeStamp   int
	TimeStampGA     int
}

// FromClassifier captures cl as a record.
func FromClassifier(env *classifier.Environment, cl *classifier.Classifier) Record {
	return Record{
		Condition:       cl.ConditionString(),
		Phenotype:       cl.PhenotypeString(env),
		Fitness:         cl.Fitness,
		Accuracy:        cl.Accuracy,
		Numerosity:      cl.Numerosity,
		MatchCount:      cl.MatchCount,
		CorrectCount:    cl.CorrectCount,
		AveMatchSetSize: cl.AveMatchSetSize,
		InitTimeStamp:   cl.InitTimeStamp,
		TimeStampGA:     cl.TimeStampGA,
	}
}

// Records captures every classifier in pop.
func Records(env *classifier.Environment, pop []*classifier.Classifier) []Record {
	out := make([]Record, len(pop))
	for i, cl := range pop {
		out[i] = FromClassifier(env, cl)
	}
	return out
}

// Row renders r in Headers order.
func (r Record) Row() []string {
	return []string{
		r.Condition,
		r.Phenotype,
		formatFloat(r.Fitness),
		formatFloat(r.Accuracy),
		strconv.Itoa(r.Numerosity),
		strconv.Itoa(r.MatchCount),
		strconv.Itoa(r.CorrectCount),
		formatFloat(r.AveMatchSetSize),
		strconv.Itoa(r.InitTimeStamp),
		strconv.Itoa(r.TimeStampGA),
	}
}

func (r Record) values() []interface{} {
	return []interface{}{
		r.Condition, r.Phenotype, r.Fitness, r.Accuracy, r.Numerosity,
		r.MatchCount, r.CorrectCount, r.AveMatchSetSize, r.InitTimeStamp, r.TimeStampGA,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Classifier rebuilds a classifier from r. The condition must hold one
// bracketed expression per attribute of env, each reading only attributes
// below env.NumAttributes.
func (r Record) Classifier(env *classifier.Environment) (*classifier.Classifier, error) {
	exprs := SplitCondition(r.Condition)
	if len(exprs) != env.NumAttributes {
		return nil, fmt.Errorf("condition %q has %d slots, want %d", r.Condition, len(exprs), env.NumAttributes)
	}

	cl := &classifier.Classifier{
		Conditions:      make([]condition.Condition, len(exprs)),
		Fitness:         r.Fitness,
		Accuracy:        r.Accuracy,
		Numerosity:      r.Numerosity,
		MatchCount:      r.MatchCount,
		CorrectCount:    r.CorrectCount,
		AveMatchSetSize: r.AveMatchSetSize,
		InitTimeStamp:   r.InitTimeStamp,
		TimeStampGA:     r.TimeStampGA,
	}
	if cl.Numerosity < 1 {
		cl.Numerosity = 1
	}
	for i, e := range exprs {
		cd, err := condition.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if vars := cd.Variables(); len(vars) > 0 && vars[len(vars)-1] >= env.NumAttributes {
			return nil, fmt.Errorf("slot %d: %q reads D%d, want indices below %d",
				i, cd.Expression(), vars[len(vars)-1], env.NumAttributes)
		}
		cl.Conditions[i] = cd
	}

	ph, err := parsePhenotype(env, r.Phenotype)
	if err != nil {
		return nil, err
	}
	cl.Phenotype = ph
	return cl, nil
}

func parsePhenotype(env *classifier.Environment, s string) (classifier.Phenotype, error) {
	s = strings.TrimSpace(s)
	if env.Discrete {
		return classifier.Phenotype{Label: s}, nil
	}
	lo, hi, ok := strings.Cut(s, ";")
	if !ok {
		return classifier.Phenotype{}, fmt.Errorf("continuous phenotype %q is not \"low;high\"", s)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return classifier.Phenotype{}, fmt.Errorf("phenotype low: %w", err)
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return classifier.Phenotype{}, fmt.Errorf("phenotype high: %w", err)
	}
	return classifier.Phenotype{Low: low, High: high}, nil
}
