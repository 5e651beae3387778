// Package agent runs the tool calling loop that turns a user message into a
// reply. The model proposes tool calls, the agent executes them through a
// ToolExecutor and feeds the results back until the model answers in text
// or the iteration limit is reached.
package agent
