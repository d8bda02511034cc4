package weather

// Aggregate maps provider names to readings and remembers insertion order.
// The zero value is an empty aggregate ready to use.
type Aggregate struct {
	order    []string
	readings map[string]Reading
}

// Entry is one provider's reading inside an Aggregate.
type Entry struct {
	Provider string  `json:"provider"`
	Reading  Reading `json:"reading"`
}

// Add stores a reading under the provider name. Re-adding a name replaces the
// reading but keeps its original position.
func (a *Aggregate) Add(provider string, r Reading) {
	if a.readings == nil {
		a.readings = make(map[string]Reading)
	}
	if _, exists := a.readings[provider]; !exists {
		a.order = append(a.order, provider)
	}
	a.readings[provider] = r
}

func (a *Aggregate) Get(provider string) (Reading, bool) {
	r, ok := a.readings[provider]
	return r, ok
}

func (a *Aggregate) Len() int {
	return len(a.order)
}

func (a *Aggregate) IsEmpty() bool {
	return len(a.order) == 0
}

// Names returns provider names in insertion order.
func (a *Aggregate) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Entries returns the readings in insertion order.
func (a *Aggregate) Entries() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, Entry{Provider: name, Reading: a.readings[name]})
	}
	return out
}

// City returns the city of the first inserted reading.
func (a *Aggregate) City() string {
	if len(a.order) == 0 {
		return ""
	}
	return a.readings[a.order[0]].City
}

// AverageTemperature is the arithmetic mean over all readings. ok is false
// for an empty aggregate.
func (a *Aggregate) AverageTemperature() (avg float64, ok bool) {
	if len(a.order) == 0 {
		return 0, false
	}
	var sum float64
	for _, name := range a.order {
		sum += a.readings[name].Temperature
	}
	return sum / float64(len(a.order)), true
}
