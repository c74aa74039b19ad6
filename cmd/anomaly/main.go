// Command anomaly runs one characterization cycle against a captured LiDAR
// stream: it learns the scene background, isolates and characterizes the
// object in front of it, and then either stores the result as a named model
// or compares it against one and prints the anomaly report.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/anomaly.report/internal/config"
	"github.com/banshee-data/anomaly.report/internal/lidar"
	"github.com/banshee-data/anomaly.report/internal/scanner"
	"github.com/banshee-data/anomaly.report/internal/store"
)

var (
	csvFile    = flag.String("csv", "", "CSV point capture to replay")
	pcapFile   = flag.String("pcap", "", "PCAP point capture to replay")
	dbFile     = flag.String("db", "models.db", "Path to the model library SQLite file")
	configFile = flag.String("config", "", "Optional JSON tuning file")

	backMillis = flag.Int("background-ms", 1000, "Background window duration in milliseconds")
	objMillis  = flag.Int("object-ms", 500, "Object window duration in milliseconds")
	minRefl    = flag.Int("min-reflectivity", 0, "Minimum reflectivity (0-255) for a point to be kept")
	backDist   = flag.Float64("back-distance", 0.05, "Background rejection distance in metres")
	chrono     = flag.Bool("chrono", false, "Log phase durations")

	saveName    = flag.String("save", "", "Store the characterized object as a model under this name")
	compareName = flag.String("compare", "", "Compare the characterized object against this stored model")
	optimal     = flag.Bool("optimal-match", false, "Use the Hungarian assignment instead of greedy face matching")
	listModels  = flag.Bool("list", false, "List stored models and exit")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("anomaly: %v", err)
	}
}

func run() error {
	lib, err := store.Open(*dbFile)
	if err != nil {
		return err
	}
	defer lib.Close()

	if *listModels {
		return printModels(lib)
	}

	src, err := newScanner()
	if err != nil {
		return err
	}

	ch := lidar.NewCharacterizer(src, uint32(*objMillis), uint32(*backMillis), uint8(*minRefl), *backDist, *chrono)

	params := lidar.DefaultParams()
	tolerances := lidar.DefaultTolerances()
	if *configFile != "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			return err
		}
		cfg.ApplyParams(&params)
		cfg.ApplyTolerances(&tolerances)
		cfg.ApplyCharacterizer(ch)
	}
	ch.SetParams(params)

	if err := ch.Init(); err != nil {
		return err
	}
	defer ch.Stop()

	log.Printf("capturing background (%d ms)", *backMillis)
	if err := ch.DefineBackground(); err != nil {
		return err
	}

	log.Printf("capturing object (%d ms)", *objMillis)
	obj, err := ch.DefineObject()
	if errors.Is(err, lidar.ErrNoObject) {
		log.Printf("no object detected in the window")
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("characterized object: %d points, %d faces, volume %.1f mm³",
		len(obj.Points), len(obj.Faces), obj.Box.Volume())

	if *saveName != "" {
		id, err := lib.SaveModel(*saveName, obj)
		if err != nil {
			return err
		}
		log.Printf("saved model %q (%s)", *saveName, id)
	}

	if *compareName != "" {
		model, err := lib.LoadModel(*compareName)
		if err != nil {
			return err
		}
		var report lidar.AnomalyReport
		if *optimal {
			report = lidar.CompareOptimal(obj, model, tolerances)
		} else {
			report = lidar.Compare(obj, model, tolerances)
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}
	return nil
}

func newScanner() (scanner.Scanner, error) {
	switch {
	case *csvFile != "" && *pcapFile != "":
		return nil, errors.New("specify only one of -csv or -pcap")
	case *csvFile != "":
		return scanner.NewCSVScanner(*csvFile), nil
	case *pcapFile != "":
		return scanner.NewPCAPScanner(*pcapFile), nil
	}
	return nil, errors.New("a capture is required: -csv or -pcap")
}

func printModels(lib *store.Store) error {
	models, err := lib.ListModels()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("no stored models")
		return nil
	}
	w := os.Stdout
	fmt.Fprintf(w, "%-36s  %-20s  %8s  %6s  %s\n", "ID", "NAME", "POINTS", "FACES", "CREATED")
	for _, m := range models {
		fmt.Fprintf(w, "%-36s  %-20s  %8d  %6d  %s\n", m.ID, m.Name, m.PointCount, m.FaceCount, m.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
