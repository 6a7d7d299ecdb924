package cmd

import (
	"fmt"

	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
)

// repoCmd groups repository management.
var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Import and list GitHub repositories",
	Long: `Manage the repositories GitLegend knows about.

A repository must be imported before it can be analyzed. Repositories are
referenced by id, owner/name or GitHub URL in every other command.

Examples:
  gitlegend repo add https://github.com/golang/go
  gitlegend repo add spf13/cobra
  gitlegend repo list`,
}

// repoAddCmd imports a repository.
var repoAddCmd = &cobra.Command{
	Use:     "add <url|owner/name>",
	Short:   "Import a repository and its metadata from GitHub",
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		repo, err := service.AddRepository(rootCtx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s as %s\n", repo.FullName, repo.ID)
		return writer().WriteRepositories([]schema.Repository{repo})
	},
}

// repoListCmd lists repositories.
var repoListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List imported repositories, newest first",
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		repos, err := service.ListRepositories(rootCtx)
		if err != nil {
			return err
		}
		return writer().WriteRepositories(repos)
	},
}
