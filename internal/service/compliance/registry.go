package compliance

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"FinSage/internal/domain/models"
)

// Broker is one registered intermediary.
type Broker struct {
	Name           string   `yaml:"name"`
	RegistrationID string   `yaml:"registration_id"`
	Aliases        []string `yaml:"aliases"`
}

// defaultBrokers is the built-in SEBI-registered broker set. A fuller
// registry comes from the YAML file in deployment.
var defaultBrokers = []Broker{
	{Name: "Zerodha", RegistrationID: "INZ000031633", Aliases: []string{"zerodha broking"}},
	{Name: "Upstox", RegistrationID: "INZ000185137", Aliases: []string{"rksv", "rksv securities"}},
	{Name: "Groww", RegistrationID: "INZ000301838", Aliases: []string{"nextbillion technology"}},
	{Name: "Angel One", RegistrationID: "INZ000161534", Aliases: []string{"angel broking"}},
	{Name: "HDFC Securities", RegistrationID: "INZ000186937", Aliases: nil},
	{Name: "ICICI Direct", RegistrationID: "INZ000183631", Aliases: []string{"icici securities"}},
	{Name: "Kotak Securities", RegistrationID: "INZ000200137", Aliases: nil},
	{Name: "Motilal Oswal", RegistrationID: "INZ000158836", Aliases: []string{"motilal oswal financial services"}},
	{Name: "5paisa", RegistrationID: "INZ000010231", Aliases: []string{"5paisa capital"}},
	{Name: "Sharekhan", RegistrationID: "INZ000171337", Aliases: nil},
	{Name: "IIFL Securities", RegistrationID: "INZ000164132", Aliases: []string{"iifl", "india infoline"}},
	{Name: "Dhan", RegistrationID: "INZ000006031", Aliases: []string{"moneylicious securities"}},
}

type registry struct {
	brokers []Broker
	byAlias map[string]int // normalized name/alias -> brokers position
}

type registryFile struct {
	Brokers []Broker `yaml:"brokers"`
}

func loadRegistry(path string) (*registry, error) {
	brokers := defaultBrokers
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read registry file: %w", err)
		}
		var f registryFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse registry file: %w", err)
		}
		if len(f.Brokers) == 0 {
			return nil, fmt.Errorf("registry file %s has no brokers", path)
		}
		brokers = f.Brokers
	}

	byAlias := make(map[string]int)
	for i, br := range brokers {
		if br.Name == "" {
			return nil, fmt.Errorf("broker at position %d has empty name", i)
		}
		byAlias[normalize(br.Name)] = i
		for _, a := range br.Aliases {
			byAlias[normalize(a)] = i
		}
	}
	return &registry{brokers: brokers, byAlias: byAlias}, nil
}

// validate resolves a free-text broker name. Exact normalized match
// first, then a token containment pass ("zerodha app" still resolves),
// preferring the candidate sharing the most tokens.
func (r *registry) validate(name string) models.BrokerValidation {
	out := models.BrokerValidation{Query: name}
	q := normalize(name)
	if q == "" {
		return out
	}

	if i, ok := r.byAlias[q]; ok {
		return r.matched(out, i)
	}

	qTokens := strings.Fields(q)
	best, bestShared := -1, 0
	for alias, i := range r.byAlias {
		shared := sharedTokens(qTokens, strings.Fields(alias))
		// every token of the alias must appear in the query
		if shared == len(strings.Fields(alias)) && shared > bestShared {
			best, bestShared = i, shared
		}
	}
	if best >= 0 {
		return r.matched(out, best)
	}
	return out
}

func (r *registry) matched(out models.BrokerValidation, i int) models.BrokerValidation {
	out.Registered = true
	out.MatchedName = r.brokers[i].Name
	out.RegistrationID = r.brokers[i].RegistrationID
	return out
}

func sharedTokens(query, alias []string) int {
	n := 0
	for _, a := range alias {
		for _, q := range query {
			if a == q {
				n++
				break
			}
		}
	}
	return n
}
