// Command flintdb opens an engine over a data directory and drives it from an
// interactive prompt. Meant for poking at the storage format, not production.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flintdb "github.com/Priyanshu23/FlintDBGo"
	flag "github.com/spf13/pflag"
)

func main() {
	dataDir := flag.String("data-dir", "./flintdb-data", "directory holding sst/, wal/ and the manifest")
	memTableSize := flag.Uint64("mem-table-size", 4096, "memtable byte cap before rotation")
	blockSize := flag.Int("block-size", 1024, "sst block byte cap")
	syncEveryWrite := flag.Bool("sync-every-write", false, "fsync the wal on every put")
	flag.Parse()

	opts := flintdb.Options{
		MemTableSize: *memTableSize,
		BlockSize:    *blockSize,
		SSTDir:       filepath.Join(*dataDir, "sst"),
		WALDir:       filepath.Join(*dataDir, "wal"),
		ManifestPath: filepath.Join(*dataDir, "manifest.json"),
	}
	if *syncEveryWrite {
		opts.WALSync = flintdb.SyncOnWrite
	}

	store, err := flintdb.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("flintdb at %s — put <k> <v> | get <k> | del <k> | flush | stats | quit\n", *dataDir)
	if err := repl(store, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", err)
		os.Exit(1)
	}
}

func repl(store *flintdb.Storage, in *os.File) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "put":
			if len(fields) != 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			if err := store.Put([]byte(fields[1]), []byte(fields[2])); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			value, ok, err := store.Get([]byte(fields[1]))
			switch {
			case err != nil:
				fmt.Printf("error: %v\n", err)
			case !ok:
				fmt.Println("(absent)")
			default:
				fmt.Printf("%s\n", value)
			}
		case "del":
			if len(fields) != 2 {
				fmt.Println("usage: del <key>")
				continue
			}
			if err := store.Remove([]byte(fields[1])); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "flush":
			if err := store.FlushRun(true); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "stats":
			stats := store.Stats()
			fmt.Printf("puts=%d gets=%d removes=%d flushes=%d current_table=%d\n",
				stats.Puts, stats.Gets, stats.Removes, stats.Flushes, store.CurrentTableID())
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}
