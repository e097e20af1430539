package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/1broseidon/thriveos/internal/ipc"
	"github.com/1broseidon/thriveos/internal/palette"
)

func runLaunch(args []string) int {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	backend := fs.String("backend", "auto", "Menu program: auto, rofi, fuzzel, wofi, dmenu")
	credential := fs.String("credential", "", "Passphrase for elevated panels")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: thriveos launch [--backend NAME] [--credential SECRET]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pick a panel from a rofi/dmenu style menu and open it.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return 2
	}

	menu, err := palette.NewBackend(*backend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	client := ipc.NewClient().WithTimeout(slowTimeout)
	state, err := client.GetState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	id, err := palette.ChoosePanel(context.Background(), menu, state.Catalog, state.Windows)
	if errors.Is(err, palette.ErrCancelled) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	res, err := client.Open(id, *credential)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("%s %s\n", id, res.Result)
	if res.Result == "denied" {
		return 1
	}
	return 0
}
