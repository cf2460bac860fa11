// Package consumer delivers price updates to renderers and sinks.
//
// FanOut drains the dispatcher's update channel and hands each update to every
// Consumer in order. A failing consumer is logged and counted; the others keep
// receiving. Console and Chart are the two reference renderers.
package consumer
