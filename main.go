package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"
)

const (
	// default number of geometries handed to the workers at once
	CHUNK = 128
	// largest difference from a reference accepted by the check mode
	THRESH = 1e-6
)

// Flags
var (
	debug      = flag.Bool("debug", false, "toggle debugging information")
	cpuprofile = flag.String("cpu", "", "write a CPU profile")
)

func check(conf Config) error {
	start := time.Now()
	rows, err := RunCheck(conf)
	if err != nil {
		return err
	}
	fmt.Printf("toy model at q = %v, eps = %g, step = %g\n",
		conf.Q, conf.Eps, conf.Step)
	err = WriteCheck(os.Stdout, rows, THRESH)
	fmt.Printf("check took %.3f s\n", time.Since(start).Seconds())
	return err
}

func eval(conf Config) error {
	geoms, err := LoadGeoms(conf.GeomFile)
	if err != nil {
		return err
	}
	if len(geoms) == 0 {
		return errors.Errorf("no geometries in %s", conf.GeomFile)
	}
	ev, err := NewEvaluator(conf, len(geoms[0]))
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d geometries\n", len(geoms))
	fmt.Printf("%d input features, %d parameters, %d workers\n",
		ev.Gen.NFeatures(), ev.Arena.Master().NParams(), ev.Arena.Len())
	if *debug {
		WriteParams(os.Stderr, Params(ev.Arena.Master().Hd))
	}
	start := time.Now()
	results, err := ev.Run(geoms)
	if err != nil {
		return err
	}
	if *debug {
		for i, r := range results {
			if r.Vectors != nil {
				WriteMat(os.Stderr,
					fmt.Sprintf("geometry %d %v basis", i, r.Rep), r.Vectors)
			}
		}
	}
	WriteResults(os.Stdout, results)
	fmt.Printf("evaluation took %.3f s\n", time.Since(start).Seconds())
	return nil
}

func mainWithErr() error {
	flag.Parse()
	args := flag.Args()
	infile := "hdfit.toml"
	if len(args) >= 1 {
		infile = args[0]
	}
	host, _ := os.Hostname()
	fmt.Printf("running on host: %s\n", host)
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	conf, err := LoadConfig(infile)
	if err != nil {
		return err
	}
	if *debug {
		log.Printf("%+v\n", conf)
	}
	fmt.Printf("mode: %v\n", conf.Mode)
	switch conf.Mode {
	case Check:
		return check(conf)
	case Eval:
		return eval(conf)
	}
	return nil
}

func main() {
	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}
