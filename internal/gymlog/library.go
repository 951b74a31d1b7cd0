package gymlog

// Library is the read-only exercise reference. Lookups of unknown ids
// report ok=false.
type Library interface {
	Lookup(exerciseID string) (ExerciseMeta, bool)
	// IsTarget reports whether the muscle is the primary target of any exercise.
	IsTarget(muscle string) bool
}

// Catalog is an in-memory Library snapshot.
type Catalog struct {
	exercises map[string]ExerciseMeta
	targets   map[string]struct{}
}

func NewCatalog(exercises []ExerciseMeta) *Catalog {
	c := &Catalog{
		exercises: make(map[string]ExerciseMeta, len(exercises)),
		targets:   make(map[string]struct{}),
	}
	for _, ex := range exercises {
		if ex.SecondaryMuscles == nil {
			ex.SecondaryMuscles = MuscleList{}
		} else {
			ex.SecondaryMuscles = NormalizeMuscles(ex.SecondaryMuscles)
		}
		c.exercises[ex.ID] = ex
		if target := ex.NormalizedTarget(); target != "" {
			c.targets[target] = struct{}{}
		}
	}
	return c
}

func (c *Catalog) Lookup(exerciseID string) (ExerciseMeta, bool) {
	if c == nil {
		return ExerciseMeta{}, false
	}
	ex, ok := c.exercises[exerciseID]
	return ex, ok
}

func (c *Catalog) IsTarget(muscle string) bool {
	if c == nil {
		return false
	}
	_, ok := c.targets[NormalizeMuscle(muscle)]
	return ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.exercises)
}

// Exercises returns the catalog contents in no particular order.
func (c *Catalog) Exercises() []ExerciseMeta {
	if c == nil {
		return nil
	}
	out := make([]ExerciseMeta, 0, len(c.exercises))
	for _, ex := range c.exercises {
		out = append(out, ex)
	}
	return out
}
