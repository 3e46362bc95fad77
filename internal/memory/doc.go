// Package memory keeps image decoding within the container's memory.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// before the server starts allocating. A GOMEMLIMIT set explicitly is left
// alone.
//
// A [Monitor] samples heap allocation against that limit. When usage
// crosses the critical mark, thumbnail generation stops picking up work
// until usage falls back below the high mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	thumbnails.SetGate(monitor)
//	supervisor.AddService(monitor)
//
// Example Kubernetes wiring:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//	  - name: MEMORY_RATIO
//	    value: "0.80"
package memory
