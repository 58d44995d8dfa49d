package optimizer

import (
	"fmt"
	"runtime"
	"time"
)

// GAConfig tunes the genetic algorithm.
type GAConfig struct {
	Population     int     `json:"population"`
	Generations    int     `json:"generations"`
	Patience       int     `json:"patience"`
	TournamentSize int     `json:"tournament_size"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
	// MutationSigma is the standard deviation, in minutes, of offset mutations.
	MutationSigma float64 `json:"mutation_sigma"`
	// MaxOffset bounds the entry offset of a train relative to the baseline.
	MaxOffset    float64 `json:"max_offset"`
	TimeBudgetMS int     `json:"time_budget_ms"`
}

// ACOConfig tunes the ant colony.
type ACOConfig struct {
	Ants         int     `json:"ants"`
	Iterations   int     `json:"iterations"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	Evaporation  float64 `json:"evaporation"`
	Deposit      float64 `json:"deposit"`
	EliteWeight  float64 `json:"elite_weight"`
	MinPheromone float64 `json:"min_pheromone"`
	// SeedBias multiplies the pheromone on the edges of a warm start.
	SeedBias     float64 `json:"seed_bias"`
	TimeBudgetMS int     `json:"time_budget_ms"`
}

// ExactConfig tunes the branch and bound solver.
type ExactConfig struct {
	TimeBudgetMS int `json:"time_budget_ms"`
	// MaxAddedDelay is the largest delay, in minutes, the solver may add to a
	// single train. Schedules breaking it are infeasible. Zero bounds it by
	// the planned horizon of the snapshot.
	MaxAddedDelay float64 `json:"max_added_delay"`
}

// RLConfig tunes the Q-learning agent.
type RLConfig struct {
	Episodes      int     `json:"episodes"`
	LearningRate  float64 `json:"learning_rate"`
	Discount      float64 `json:"discount"`
	Epsilon       float64 `json:"epsilon"`
	EpsilonDecay  float64 `json:"epsilon_decay"`
	MinEpsilon    float64 `json:"min_epsilon"`
	StepMinutes   float64 `json:"step_minutes"`
	MaxHolds      int     `json:"max_holds"`
	TerminalBonus float64 `json:"terminal_bonus"`
	TimeBudgetMS  int     `json:"time_budget_ms"`
}

// Config defines optimizer settings.
type Config struct {
	HeadwayMinutes float64 `json:"headway_minutes"`
	// Workers bounds concurrent strategies in RunAll. Zero uses GOMAXPROCS.
	Workers int `json:"workers"`
	// Seed makes stochastic strategies reproducible.
	Seed           int64       `json:"seed"`
	ConflictWeight float64     `json:"conflict_weight"`
	GA             GAConfig    `json:"ga"`
	ACO            ACOConfig   `json:"aco"`
	Exact          ExactConfig `json:"exact"`
	RL             RLConfig    `json:"rl"`
}

// DefaultConfig returns the default optimizer settings.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HeadwayMinutes == 0 {
		c.HeadwayMinutes = 2
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.ConflictWeight == 0 {
		c.ConflictWeight = 100
	}
	c.GA.setDefaults()
	c.ACO.setDefaults()
	c.Exact.setDefaults()
	c.RL.setDefaults()
}

func (c *GAConfig) setDefaults() {
	if c.Population == 0 {
		c.Population = 30
	}
	if c.Generations == 0 {
		c.Generations = 40
	}
	if c.Patience == 0 {
		c.Patience = 15
	}
	if c.TournamentSize == 0 {
		c.TournamentSize = 3
	}
	if c.MutationRate == 0 {
		c.MutationRate = 0.3
	}
	if c.CrossoverRate == 0 {
		c.CrossoverRate = 0.7
	}
	if c.MutationSigma == 0 {
		c.MutationSigma = 5
	}
	if c.MaxOffset == 0 {
		c.MaxOffset = 60
	}
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = 5000
	}
}

func (c *ACOConfig) setDefaults() {
	if c.Ants == 0 {
		c.Ants = 10
	}
	if c.Iterations == 0 {
		c.Iterations = 30
	}
	if c.Alpha == 0 {
		c.Alpha = 1
	}
	if c.Beta == 0 {
		c.Beta = 2
	}
	if c.Evaporation == 0 {
		c.Evaporation = 0.1
	}
	if c.Deposit == 0 {
		c.Deposit = 100
	}
	if c.MinPheromone == 0 {
		c.MinPheromone = 0.01
	}
	if c.SeedBias == 0 {
		c.SeedBias = 2
	}
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = 5000
	}
}

func (c *ExactConfig) setDefaults() {
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = 2000
	}
}

func (c *RLConfig) setDefaults() {
	if c.Episodes == 0 {
		c.Episodes = 200
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
	if c.Discount == 0 {
		c.Discount = 0.95
	}
	if c.Epsilon == 0 {
		c.Epsilon = 0.3
	}
	if c.EpsilonDecay == 0 {
		c.EpsilonDecay = 0.99
	}
	if c.MinEpsilon == 0 {
		c.MinEpsilon = 0.01
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 5
	}
	if c.MaxHolds == 0 {
		c.MaxHolds = 6
	}
	if c.TerminalBonus == 0 {
		c.TerminalBonus = 10
	}
	if c.TimeBudgetMS == 0 {
		c.TimeBudgetMS = 5000
	}
}

// Validate checks the values are usable.
func (c Config) Validate() error {
	if c.HeadwayMinutes < 0 {
		return fmt.Errorf("headway_minutes must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.GA.Population < 4 {
		return fmt.Errorf("ga.population must be at least 4")
	}
	if c.GA.Generations < 1 || c.GA.TournamentSize < 1 {
		return fmt.Errorf("ga.generations and ga.tournament_size must be positive")
	}
	if c.GA.MutationRate < 0 || c.GA.MutationRate > 1 || c.GA.CrossoverRate < 0 || c.GA.CrossoverRate > 1 {
		return fmt.Errorf("ga rates must be within [0,1]")
	}
	if c.ACO.Ants < 1 || c.ACO.Iterations < 1 {
		return fmt.Errorf("aco.ants and aco.iterations must be positive")
	}
	if c.ACO.Evaporation <= 0 || c.ACO.Evaporation >= 1 {
		return fmt.Errorf("aco.evaporation must be within (0,1)")
	}
	if c.Exact.MaxAddedDelay < 0 {
		return fmt.Errorf("exact.max_added_delay must not be negative")
	}
	if c.RL.Episodes < 1 || c.RL.StepMinutes <= 0 || c.RL.MaxHolds < 0 {
		return fmt.Errorf("rl.episodes and rl.step_minutes must be positive")
	}
	if c.RL.Discount < 0 || c.RL.Discount > 1 || c.RL.LearningRate <= 0 || c.RL.LearningRate > 1 {
		return fmt.Errorf("rl.discount and rl.learning_rate must be within [0,1]")
	}
	return nil
}

func budget(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
