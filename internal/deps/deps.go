package deps

// Tool names one external binary and what it is used for.
type Tool struct {
	Name        string
	Description string
	Optional    bool
}

// Status reports whether a tool could be resolved and, if so, the command
// that runs it.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ResolveAll resolves every tool against toolsDir, preserving order.
func ResolveAll(toolsDir string, tools ...Tool) []Status {
	results := make([]Status, 0, len(tools))
	for _, tool := range tools {
		status := ResolveTool(tool.Name, toolsDir, tool.Description)
		status.Optional = tool.Optional
		results = append(results, status)
	}
	return results
}
