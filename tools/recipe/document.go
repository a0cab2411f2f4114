package recipe

import "fmt"

// MinimumVersion is the lowest AutoPkg release the generated recipes target.
const MinimumVersion = "0.5.0"

// Args holds processor arguments. Values may be strings, bools, slices or
// nested Args.
type Args map[string]interface{}

// Step is one processor invocation. Order inside Document.Process matters.
type Step struct {
	Processor              string `plist:"Processor" yaml:"Processor"`
	SharedProcessorRepoURL string `plist:"SharedProcessorRepoURL,omitempty" yaml:"SharedProcessorRepoURL,omitempty"`
	Arguments              Args   `plist:"Arguments,omitempty" yaml:"Arguments,omitempty"`
}

// Document is a complete recipe as written to disk.
type Document struct {
	Description    string `plist:"Description" yaml:"Description"`
	Identifier     string `plist:"Identifier" yaml:"Identifier"`
	MinimumVersion string `plist:"MinimumVersion" yaml:"MinimumVersion"`
	ParentRecipe   string `plist:"ParentRecipe,omitempty" yaml:"ParentRecipe,omitempty"`
	Input          Args   `plist:"Input" yaml:"Input"`
	Process        []Step `plist:"Process" yaml:"Process"`
	Comment        string `plist:"Comment,omitempty" yaml:"Comment,omitempty"`
}

// NewDocument returns an empty document for kind with Input.NAME set.
func NewDocument(identifier, name string) *Document {
	return &Document{
		Identifier:     identifier,
		MinimumVersion: MinimumVersion,
		Input:          Args{"NAME": name},
		Process:        []Step{},
	}
}

// Identifier formats "<prefix>.<kind>.<name>".
func Identifier(prefix, kind, name string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, kind, name)
}

// AddStep appends a processor invocation.
func (d *Document) AddStep(processor string, args Args) {
	d.Process = append(d.Process, Step{Processor: processor, Arguments: args})
}

// AddSharedStep appends a processor that lives in a shared recipe repo.
func (d *Document) AddSharedStep(processor, repoURL string, args Args) {
	d.Process = append(d.Process, Step{Processor: processor, SharedProcessorRepoURL: repoURL, Arguments: args})
}

// SetInput sets an Input variable.
func (d *Document) SetInput(key string, value interface{}) {
	if d.Input == nil {
		d.Input = Args{}
	}
	d.Input[key] = value
}

// Processors lists the processor names in order.
func (d *Document) Processors() []string {
	names := make([]string, 0, len(d.Process))
	for _, s := range d.Process {
		names = append(names, s.Processor)
	}
	return names
}

// FindStep returns the first step running processor.
func (d *Document) FindStep(processor string) (Step, bool) {
	for _, s := range d.Process {
		if s.Processor == processor {
			return s, true
		}
	}
	return Step{}, false
}
