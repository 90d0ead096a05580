// Package policy implements the layered shouldIndex decision: hardcoded
// deny, user exclude globs, gitignore, binary sniffing, size limit, then
// user include globs.
package policy

// Category names the decision layer that determined a path's outcome.
type Category string

const (
	CategoryHardcoded       Category = "hardcoded"
	CategoryUserExclude     Category = "user-exclude"
	CategoryGitignore       Category = "gitignore"
	CategoryBinary          Category = "binary"
	CategorySize            Category = "size"
	CategoryIncludeMismatch Category = "include-mismatch"
	CategoryAllow           Category = "allow"
)

// Decision is the result of evaluating a path.
type Decision struct {
	Allow    bool
	Category Category
}
