package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path"
	"strings"
	"time"
	"unicode"

	"code.linkpair.org/golang/pkg/adv"
)

const usageFmt = `
Command Usage: %s [Flags]
  Generate pairing test vectors, or control vectors saved in a file.

Flags:
------
`

var typeNames = map[string]int{"default": 0, "hosted": 1}

type Cmd struct {
	Out          *json.Encoder
	OutFile      *os.File
	CheckPath    string
	AccountTypes []adv.AccountType
	DeviceTypes  []adv.DeviceType
	Repeat       int
}

func parseFlags(progname string, args []string) *Cmd {
	cmd := Cmd{}

	flags := flag.NewFlagSet(progname, flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, usageFmt, path.Base(progname))
		flags.PrintDefaults()
	}

	var outPath string
	flags.StringVar(&outPath, "o", "-", `path where to save the generated vectors`)

	flags.StringVar(&cmd.CheckPath, "check", "", `path of vectors to control, nothing is generated if set`)

	const accountDoc = `
	Account type of the pairing record HMAC, default or hosted.
	Add more than 1 by repeating this option.
	Defaults to all account types.
	`
	flags.Func("at", dedent(accountDoc), func(v string) error {
		t, found := typeNames[strings.ToLower(v)]
		if !found {
			return fmt.Errorf("Invalid account type %s", v)
		}
		cmd.AccountTypes = append(cmd.AccountTypes, adv.AccountType(t))
		return nil
	})

	const deviceDoc = `
	Device type of the device identity body, default or hosted.
	Add more than 1 by repeating this option.
	Defaults to all device types.
	`
	flags.Func("dt", dedent(deviceDoc), func(v string) error {
		t, found := typeNames[strings.ToLower(v)]
		if !found {
			return fmt.Errorf("Invalid device type %s", v)
		}
		cmd.DeviceTypes = append(cmd.DeviceTypes, adv.DeviceType(t))
		return nil
	})

	var repeat uint
	flags.UintVar(&repeat, "n", 4, `number of vectors to generate for each type combination`)

	flags.Parse(args)

	// set cmd.Out
	var err error
	var outFile *os.File
	if "-" != outPath {
		outFile, err = os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if nil != err {
			log.Fatalf("Failed opening %s, got error %v", outPath, err)
		}
	} else {
		outFile = os.Stdout
	}
	enc := json.NewEncoder(outFile)
	enc.SetIndent("", "  ")
	cmd.Out = enc
	cmd.OutFile = outFile

	if len(cmd.AccountTypes) == 0 {
		cmd.AccountTypes = []adv.AccountType{adv.AccountDefault, adv.AccountHosted}
	}
	if len(cmd.DeviceTypes) == 0 {
		cmd.DeviceTypes = []adv.DeviceType{adv.DeviceDefault, adv.DeviceHosted}
	}
	cmd.Repeat = int(repeat)

	return &cmd
}

func main() {
	cmd := parseFlags(os.Args[0], os.Args[1:])

	if "" != cmd.CheckPath {
		checkVectors(cmd.CheckPath)
		return
	}

	var vectors []adv.TestVector
	for _, at := range cmd.AccountTypes {
		for _, dt := range cmd.DeviceTypes {
			for num := range cmd.Repeat {
				name := fmt.Sprintf("%s_%s_%02d", strings.ToLower(at.String()), strings.ToLower(dt.String()), num)
				vector, err := adv.NewTestVector(name, at, randomBody(dt))
				if nil != err {
					log.Fatalf("Failed generating TestVector, got error %v", err)
				}
				vectors = append(vectors, vector)
			}
		}
	}
	err := cmd.Out.Encode(vectors)
	if nil != err {
		log.Fatalf("Failed serializing []TestVector, got error %v", err)
	}
	if os.Stdout != cmd.OutFile {
		err = cmd.OutFile.Close()
		if nil != err {
			log.Fatalf("Failed closing output file, got error %v", err)
		}
	}
}

func checkVectors(srcpath string) {
	vectors, err := adv.LoadTestVectors(srcpath)
	if nil != err {
		log.Fatalf("Failed loading vectors, got error %v", err)
	}
	var failed int
	for _, vector := range vectors {
		_, err = vector.Verify()
		if nil != err {
			failed += 1
			log.Printf("vector %s failed, got error %v", vector.Name, err)
		}
	}
	log.Printf("controlled %d vectors, %d failed", len(vectors), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func randomBody(dt adv.DeviceType) adv.DeviceIdentityBody {
	return adv.DeviceIdentityBody{
		RawId:      rand.Uint32(),
		Timestamp:  uint64(time.Now().Unix()),
		KeyIndex:   1 + rand.Uint32N(64),
		DeviceType: dt,
	}
}

func dedent(multilines string) string {
	var sb strings.Builder
	for line := range strings.Lines(strings.TrimRightFunc(multilines, unicode.IsSpace)) {
		sb.WriteString(strings.TrimLeftFunc(line, unicode.IsSpace))
	}
	return sb.String()
}
