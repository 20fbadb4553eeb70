package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/process"
	"github.com/blockkit/unixfs/ufs"
	"github.com/blockkit/unixfs/util"
	"github.com/blockkit/unixfs/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive shell over a mounted image",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := viper.GetString("image")
		if imagePath == "" {
			return fmt.Errorf("--image is required")
		}
		storage, err := file.OpenFromPath(imagePath, false)
		if err != nil {
			return err
		}
		defer func() { _ = storage.Close() }()

		mounted, err := ufs.Mount(storage, log)
		if err != nil {
			return err
		}
		v, err := vfs.New(log)
		if err != nil {
			return err
		}
		if err := v.Mount("/", mounted); err != nil {
			return err
		}
		p := process.New(v.Syscalls(), log)

		fmt.Printf("mounted %s (volume %s); type 'help' for commands\n", imagePath, mounted.VolumeID)
		return runShell(p, os.Stdin, os.Stdout)
	},
}

func runShell(p *process.Process, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "unixfs> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := runCommand(p, out, fields); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintln(out, "error:", err)
		}
	}
}

var errExit = fmt.Errorf("exit")

func runCommand(p *process.Process, out *os.File, fields []string) error {
	switch fields[0] {
	case "exit", "quit":
		return errExit
	case "help":
		fmt.Fprintln(out, "commands: mkdir <path>, touch <path>, ls <path>, cat <path>, dump <path>, write <path> <text>, stat <path>, exit")
	case "mkdir":
		if len(fields) != 2 {
			return fmt.Errorf("usage: mkdir <path>")
		}
		return p.Mkdir(fields[1])
	case "touch":
		if len(fields) != 2 {
			return fmt.Errorf("usage: touch <path>")
		}
		fd, err := p.Open(fields[1], os.O_CREATE|os.O_RDWR)
		if err != nil {
			return err
		}
		return p.Close(fd)
	case "ls":
		if len(fields) != 2 {
			return fmt.Errorf("usage: ls <path>")
		}
		entries, err := p.ListDir(fields[1])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(out, e.Name)
		}
	case "cat":
		if len(fields) != 2 {
			return fmt.Errorf("usage: cat <path>")
		}
		return catFile(p, out, fields[1])
	case "dump":
		if len(fields) != 2 {
			return fmt.Errorf("usage: dump <path>")
		}
		data, err := readFile(p, fields[1])
		if err != nil {
			return err
		}
		fmt.Fprint(out, util.Hexdump(data, 16))
	case "write":
		if len(fields) < 3 {
			return fmt.Errorf("usage: write <path> <text>")
		}
		return writeFile(p, fields[1], strings.Join(fields[2:], " "))
	case "stat":
		if len(fields) != 2 {
			return fmt.Errorf("usage: stat <path>")
		}
		attr, err := p.Stat(fields[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "kind=%s size=%d link_count=%d inode=%d\n", attr.Kind, attr.Size, attr.LinkCount, attr.InodeNo)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func catFile(p *process.Process, out *os.File, path string) error {
	data, err := readFile(p, path)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func readFile(p *process.Process, path string) ([]byte, error) {
	fd, err := p.Open(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close(fd) }()
	attr, err := p.Stat(path)
	if err != nil {
		return nil, err
	}
	return p.Read(fd, attr.Size)
}

func writeFile(p *process.Process, path, text string) error {
	fd, err := p.Open(path, os.O_CREATE|os.O_WRONLY)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close(fd) }()
	_, err = p.Write(fd, []byte(text))
	return err
}
