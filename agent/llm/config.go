package llm

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	chatmodelx "github.com/tanpawarit/sentinel-orchestrator/pkg/chatmodel"
)

// Overrides are decoded with the SENTINEL prefix. A negative temperature means
// "use the shared default".
type Overrides struct {
	HistoryTurns int `split_words:"true" default:"6"`

	StrataModel   string  `split_words:"true"`
	DealhawkModel string  `split_words:"true"`
	NeoModel      string  `split_words:"true"`
	ProformaModel string  `split_words:"true"`
	CipherModel   string  `split_words:"true"`
	StrataTemp    float32 `envconfig:"STRATA_TEMPERATURE" default:"-1"`
	DealhawkTemp  float32 `envconfig:"DEALHAWK_TEMPERATURE" default:"-1"`
	NeoTemp       float32 `envconfig:"NEO_TEMPERATURE" default:"-1"`
	ProformaTemp  float32 `envconfig:"PROFORMA_TEMPERATURE" default:"-1"`
	CipherTemp    float32 `envconfig:"CIPHER_TEMPERATURE" default:"-1"`
}

type Config struct {
	Base      chatmodelx.Config
	Overrides Overrides
}

// Validate reports configuration problems that do not stop the process.
// Calls made with a missing key fail later with an embedded error reply.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Base.APIKey) == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is not set", contractx.ErrValidation)
	}
	return nil
}

func (c Config) HistoryTurns() int {
	if c.Overrides.HistoryTurns < 0 {
		return 0
	}
	return c.Overrides.HistoryTurns
}

func (c Config) For(agent contractx.AgentKey) chatmodelx.Config {
	out := c.Base
	out.Model = c.Base.ModelName()
	modelName, temp := c.override(agent)
	if v := strings.TrimSpace(modelName); v != "" {
		out.Model = v
	}
	if temp >= 0 {
		out.Temperature = temp
	}
	if c.Base.MaxCompletionToken != nil {
		maxTokens := *c.Base.MaxCompletionToken
		out.MaxCompletionToken = &maxTokens
	}
	return out
}

func (c Config) override(agent contractx.AgentKey) (string, float32) {
	o := c.Overrides
	switch agent {
	case contractx.AgentStrata:
		return o.StrataModel, o.StrataTemp
	case contractx.AgentDealhawk:
		return o.DealhawkModel, o.DealhawkTemp
	case contractx.AgentNeo:
		return o.NeoModel, o.NeoTemp
	case contractx.AgentProforma:
		return o.ProformaModel, o.ProformaTemp
	case contractx.AgentCipher:
		return o.CipherModel, o.CipherTemp
	default:
		return "", -1
	}
}
