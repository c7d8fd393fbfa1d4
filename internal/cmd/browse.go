package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/internal/observability"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

var browseCmd = &cobra.Command{
	Use:   "browse [container]",
	Short: "Browse a container interactively",
	Long: `Start an interactive shell over one container. Navigate virtual
directories, mark objects and directories, and run batch actions on the
selection. Type "help" for the command list.

Examples:
  skybrowse browse media
  echo "ls" | skybrowse browse media`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

const browseHelp = `Commands:
  ls [name|size|modified] [desc]   list the current directory
  cd <dir>|..|/|<crumb index>      change directory
  up                               go to the parent directory
  crumb                            show the breadcrumb trail
  toggle <name>[/]                 toggle an object or directory mark
  select <glob>                    mark listed objects matching a glob
  select-all                       toggle every listed object
  clear, unselect                  drop every mark
  selection                        summarise the marks
  get <dir>                        download the selection into dir
  save <name> <file>               download one object to an exact path
  rm                               delete the selection
  put <path>[;<path>...]           upload files into the current directory
  cp <name> <container>[/prefix/]  copy one object to another container
  link <name>                      print a temporary read link
  containers [filter]              list containers
  use <container>                  switch container
  help                             show this help
  quit                             leave`

func runBrowse(cmd *cobra.Command, args []string) error {
	store, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	cc := newCommandContextTo(cmd, store, cmd.OutOrStdout(), false)
	cc.store = store
	defer cc.close()

	if len(args) == 1 {
		if err := transfer.ValidateContainer(args[0]); err != nil {
			return storeExitError("Invalid container name", err)
		}
		cc.session.SwitchContainer(args[0])
	}
	return browseLoop(cmd.Context(), cc, cmd.InOrStdin())
}

// browseLoop reads commands from in until EOF, "quit" or cancellation.
// Command failures are printed and do not end the loop.
func browseLoop(ctx context.Context, cc *commandContext, in io.Reader) error {
	b := &browser{cc: cc, s: cc.session, out: cc.out}
	scanner := bufio.NewScanner(in)
	for {
		b.prompt()
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(b.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := b.dispatch(ctx, name, rest); err != nil {
			observability.CLILogger.Debug("Browse command failed", zap.String("command", name), zap.Error(err))
			b.printError(err)
		}
	}
}

type browser struct {
	cc  *commandContext
	s   *explorer.Session
	out io.Writer
}

var errUsage = errors.New("usage")

func (b *browser) prompt() {
	container := b.s.Container()
	if container == "" {
		container = "(no container)"
	}
	_, _ = fmt.Fprintf(b.out, "%s:%s> ", container, b.s.Path())
}

func (b *browser) printError(err error) {
	if errors.Is(err, errUsage) {
		_, _ = fmt.Fprintln(b.out, err)
		return
	}
	if g := provider.Guidance(err); g != "" {
		_, _ = fmt.Fprintf(b.out, "error: %v\n  %s\n", err, g)
		return
	}
	_, _ = fmt.Fprintf(b.out, "error: %v\n", err)
}

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

func (b *browser) dispatch(ctx context.Context, name, rest string) error {
	args := strings.Fields(rest)
	switch name {
	case "help", "?":
		_, _ = fmt.Fprintln(b.out, browseHelp)
		return nil
	case "containers":
		infos, err := b.s.Containers(ctx, rest)
		if err != nil {
			return err
		}
		writeContainersTable(b.out, infos)
		return nil
	case "use":
		if len(args) != 1 {
			return usage("use <container>")
		}
		if err := transfer.ValidateContainer(args[0]); err != nil {
			return err
		}
		b.s.SwitchContainer(args[0])
		return b.list(ctx, nil)
	case "ls":
		return b.list(ctx, args)
	case "cd":
		if len(args) != 1 {
			return usage("cd <dir>|..|/|<crumb index>")
		}
		b.cd(args[0])
		return b.list(ctx, nil)
	case "up":
		b.s.Up()
		return b.list(ctx, nil)
	case "crumb":
		for _, c := range b.s.Path().Breadcrumbs() {
			_, _ = fmt.Fprintf(b.out, "%d  %s\n", c.Index, c.Name)
		}
		return nil
	case "toggle":
		if len(args) != 1 {
			return usage("toggle <name>[/]")
		}
		b.toggle(args[0])
		return nil
	case "select":
		if len(args) != 1 {
			return usage("select <glob>")
		}
		n, err := b.s.SelectMatching(b.s.Path().Prefix() + args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(b.out, "%d matched; %s selected\n", n, b.s.SelectionSummary())
		return nil
	case "select-all":
		b.s.ToggleAll()
		_, _ = fmt.Fprintf(b.out, "%s selected\n", b.s.SelectionSummary())
		return nil
	case "clear", "unselect":
		b.s.ClearSelection()
		return nil
	case "selection":
		_, _ = fmt.Fprintf(b.out, "%s selected\n", b.s.SelectionSummary())
		return nil
	case "get":
		if len(args) != 1 {
			return usage("get <dir>")
		}
		res, err := b.s.DownloadSelected(ctx, args[0])
		return b.report(res, err)
	case "save":
		if len(args) != 2 {
			return usage("save <name> <file>")
		}
		res, err := b.s.Download(ctx, b.key(args[0]), args[1], true)
		return b.report(res, err)
	case "rm":
		res, err := b.s.DeleteSelected(ctx)
		if err := b.report(res, err); err != nil {
			return err
		}
		return b.list(ctx, nil)
	case "put":
		if rest == "" {
			return usage("put <path>[;<path>...]")
		}
		res, err := b.s.Upload(ctx, rest, "")
		if err := b.report(res, err); err != nil {
			return err
		}
		return b.list(ctx, nil)
	case "cp":
		if len(args) != 2 {
			return usage("cp <name> <container>[/prefix/]")
		}
		dst, err := ParseLocation(args[1])
		if err != nil {
			return err
		}
		res, err := b.s.CopyTo(ctx, b.key(args[0]), dst.Container, dst.Key)
		return b.report(res, err)
	case "link":
		if len(args) != 1 {
			return usage("link <name>")
		}
		link, err := b.s.Link(ctx, b.key(args[0]))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(b.out, "%s\n", link.URL)
		return nil
	}
	return usage(fmt.Sprintf("unknown command %q; type help", name))
}

// key resolves a name relative to the current directory. Names already
// carrying the current prefix are taken as full keys.
func (b *browser) key(name string) string {
	prefix := b.s.Path().Prefix()
	if prefix != "" && strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + strings.TrimPrefix(name, vpath.Separator)
}

func (b *browser) cd(target string) {
	switch target {
	case "..":
		b.s.Up()
	case "/":
		b.s.ChangeTo(0)
	default:
		if i, err := strconv.Atoi(target); err == nil {
			b.s.ChangeTo(i)
			return
		}
		b.s.Enter(target)
	}
}

func (b *browser) toggle(name string) {
	if strings.HasSuffix(name, vpath.Separator) {
		on := b.s.ToggleDirectory(b.key(name))
		_, _ = fmt.Fprintf(b.out, "%s %s\n", name, marked(on))
		return
	}
	on := b.s.ToggleObject(b.key(name))
	_, _ = fmt.Fprintf(b.out, "%s %s\n", name, marked(on))
}

func marked(on bool) string {
	if on {
		return "selected"
	}
	return "deselected"
}

func (b *browser) list(ctx context.Context, args []string) error {
	snap, err := b.s.Refresh(ctx)
	if err != nil && snap.Seq == 0 {
		return err
	}
	sortBy, desc := parseSortArgs(args)
	sortRecords(&snap.Objects, sortBy, desc)

	sel := b.s.Selection()
	writeEntriesTable(b.out, snap, func(id string, dir bool) bool {
		if dir {
			return sel.IsDirectorySelected(id)
		}
		return sel.IsObjectSelected(id)
	})
	if err != nil {
		b.printWarning(err)
	}
	return nil
}

// printWarning reports a listing failure below the table it left empty.
func (b *browser) printWarning(err error) {
	if g := provider.Guidance(err); g != "" {
		_, _ = fmt.Fprintf(b.out, "warning: %s\n", g)
		return
	}
	_, _ = fmt.Fprintf(b.out, "warning: %v\n", err)
}

func (b *browser) report(res *transfer.BatchResult, err error) error {
	if err != nil {
		return err
	}
	b.cc.waitBars()
	if res == nil {
		_, _ = fmt.Fprintln(b.out, "Nothing selected")
		return nil
	}
	writeBatchTable(b.out, res)
	return nil
}

func parseSortArgs(args []string) (listing.SortBy, bool) {
	by, desc := listing.SortByName, false
	for _, a := range args {
		switch a {
		case string(listing.SortByName), string(listing.SortBySize), string(listing.SortByModified):
			by = listing.SortBy(a)
		case "desc":
			desc = true
		}
	}
	return by, desc
}

// sortRecords sorts a copy so the view's snapshot keeps listing order.
func sortRecords(recs *[]listing.ObjectRecord, by listing.SortBy, desc bool) {
	*recs = slices.Clone(*recs)
	listing.Sort(*recs, by, desc)
}
