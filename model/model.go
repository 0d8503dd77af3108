package model

// OpKind tags the variant of an Operation.
type OpKind string

const (
	OpModify OpKind = "modify"
	OpAdd    OpKind = "add"
	OpDelete OpKind = "delete"
)

// Operation is one change to a single file: Modify, Add or Delete.
type Operation interface {
	Kind() OpKind
	isOperation()
}

// Modify replaces lines [StartLine, EndLine] (1-indexed, inclusive) with Content.
type Modify struct {
	StartLine int
	EndLine   int
	Content   string
}

// Add appends Content to the end of the file, creating the file if needed.
type Add struct {
	Content string
}

// Delete removes the file.
type Delete struct{}

func (Modify) Kind() OpKind { return OpModify }
func (Add) Kind() OpKind    { return OpAdd }
func (Delete) Kind() OpKind { return OpDelete }

func (Modify) isOperation() {}
func (Add) isOperation()    {}
func (Delete) isOperation() {}

// FileRef is a file declared in files-to-change.
type FileRef struct {
	Path string
}

// FileChange groups the operations for one file, in document order.
type FileChange struct {
	Path       string
	Operations []Operation
}

// ChangeSet is the in-memory form of a <code-change> document.
type ChangeSet struct {
	Summary           string
	FilesToChange     []FileRef
	Changes           []FileChange
	AdditionalSteps   []string
	VerificationSteps []string
}

// Clone returns a deep copy of the change set.
func (cs *ChangeSet) Clone() *ChangeSet {
	if cs == nil {
		return nil
	}
	out := &ChangeSet{
		Summary:           cs.Summary,
		FilesToChange:     append([]FileRef(nil), cs.FilesToChange...),
		AdditionalSteps:   append([]string(nil), cs.AdditionalSteps...),
		VerificationSteps: append([]string(nil), cs.VerificationSteps...),
	}
	if cs.Changes != nil {
		out.Changes = make([]FileChange, len(cs.Changes))
		for i, change := range cs.Changes {
			// Operations are value types, so copying the slice copies them.
			out.Changes[i] = FileChange{
				Path:       change.Path,
				Operations: append([]Operation(nil), change.Operations...),
			}
		}
	}
	return out
}

// Summary holds the results of an operation for display.
type Summary struct {
	Created      []string
	Modified     []string
	Deleted      []string
	Missing      []string
	Failed       []string
	Warnings     []string
	Steps        []string
	Verification []string
	Preview      string
	Message      string
}
