/*
Package pipe allows to build and execute tensor stream pipelines.

Concept

A pipeline is a directed graph of elements described with gst-launch
syntax:

    appsrc name=src ! other/tensor,dimension=(string)3:224:224:1,type=(string)uint8 !
        tensor_filter framework=custom-easy model=detector ! tensor_sink name=out

Application pushes tensor data into sources and receives results with
callbacks registered on sinks. Between them data flows through filters,
transforms and routing elements: tee, valve, output-selector, tensor_mux
and others. Element kinds are registered by Initialize.

Execution

Every source, queue, fan-in element and every branch of a routing
element owns a bounded input queue and a worker goroutine. Elements
between those boundaries are called synchronously by the worker. Data
pushed into a source keeps its order on every path.

    p, err := pipe.New(description)
    id, err := p.RegisterSinkCallback("out", func(d *tensor.Data) { ... })
    err = p.Start()
    err = p.Push("src", data)
    err = p.EndOfStream("src")
    err = p.Wait(ctx)
    err = p.Close()

Control

Valves and output selectors are controlled while the pipeline is playing.
Control requests travel in-band with data, so a request affects exactly
the data pushed after it. For more details refer to mutable package
documentation.
*/
package pipe
