// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Resolve a repository and run a reconnaissance session against it"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a repository without running a session"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd resolves a repository and runs a supervised session.
type RunCmd struct {
	Task         string `arg:"" help:"What to find out, free text"`
	Repo         string `short:"r" help:"Repository hint: owner/repo, GitHub URL, or owner/repo.git"`
	Cwd          string `help:"Working directory override"`
	Config       string `help:"Config file path"`
	MaxTurns     int    `help:"Override the turn budget"`
	MaxToolCalls int    `help:"Override the tool call budget"`
	JSON         bool   `help:"Emit the structured result as JSON"`
	NoInput      bool   `name:"non-interactive" help:"Disable interactive prompts (fail instead of asking)"`
	Quiet        bool   `short:"q" help:"Suppress status updates"`
}

// ResolveCmd resolves a repository and prints what was found.
type ResolveCmd struct {
	Task    string `arg:"" optional:"" help:"Task text to extract a repository hint from"`
	Repo    string `short:"r" help:"Repository hint: owner/repo, GitHub URL, or owner/repo.git"`
	Config  string `help:"Config file path"`
	JSON    bool   `help:"Emit the resolved repository as JSON"`
	NoInput bool   `name:"non-interactive" help:"Disable interactive prompts (fail instead of asking)"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
