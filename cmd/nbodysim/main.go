// Command nbodysim runs a Barnes-Hut gravitational simulation over a
// generated disk scene, reporting step timings.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/nbodysim/nbody"
	"github.com/nbodysim/nbody/glcompute"
	"github.com/nbodysim/nbody/workerpool"
)

var (
	numBodies = 20000
	steps     = 200
	dtFlag    = float64(0.01)
	thetaFlag = float64(nbody.DefaultTheta)
	seed      = int64(1)
	useGPU    = false
)

func init() {
	flag.IntVar(&numBodies, "bodies", numBodies, "number of bodies in the disk scene")
	flag.IntVar(&steps, "steps", steps, "number of simulation steps to run")
	flag.Float64Var(&dtFlag, "dt", dtFlag, "integration timestep")
	flag.Float64Var(&thetaFlag, "theta", thetaFlag, "Barnes-Hut opening angle")
	flag.Int64Var(&seed, "seed", seed, "PRNG seed for scene generation")
	flag.BoolVar(&useGPU, "gpu", useGPU, "run accelerate/integrate on the GPU backend")
	flag.Parse()
	if useGPU {
		fmt.Println("enabled GPU usage")
		runtime.LockOSThread() // required by the GL context the GPU backend brings up.
	}
}

func scene() *nbody.Sim {
	bodies := make([]nbody.Body, numBodies)
	rng := rand.New(rand.NewSource(seed))
	size := float32(400)
	nbody.Disk(bodies, nbody.DiskArgs{
		CentralMass: nbody.SagittariusMass,
		StarMass:    nbody.SolarMass,
		InnerRadius: 5,
		OuterRadius: size / 2.5,
		Thickness:   0.05,
		Axis:        nbody.Vec3{Z: 1},
		Center:      nbody.Vec3{},
	}, rng)

	pool := workerpool.New()
	sim := nbody.NewSim(size, bodies, pool)
	sim.Theta = float32(thetaFlag)
	return sim
}

func main() {
	sim := scene()

	if useGPU {
		backend, err := glcompute.New()
		if err != nil {
			log.Fatal("failed to start GPU backend: ", err)
		}
		defer backend.Close()
		sim.GPU = backend
		sim.UseGPU = true
	}

	dt := float32(dtFlag)
	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := sim.Update(dt); err != nil {
			fmt.Println("error updating simulation:", err)
			os.Exit(1)
		}
	}
	elapsed := time.Since(start)
	fmt.Println("ran", steps, "steps over", numBodies, "bodies in", elapsed,
		"(", elapsed/time.Duration(steps), "per step )")
}
