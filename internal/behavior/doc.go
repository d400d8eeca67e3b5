/*
Package behavior is the behavior tree interpreter that drives agents once a
decision has been committed.

# Trees

A Tree is an immutable arena of nodes built with a Builder (or compiled from
a Def). Node kinds are a closed set:

  - sequence: children in order; Running and Failure short-circuit.
  - selector: children in order; Running and Success short-circuit.
  - all: children in order; only Running short-circuits, and when no child
    is Running the node succeeds even if some children failed.
  - not: swaps Success and Failure, passes Running through. An Error result
    reaching it is a programming error and panics.
  - for: evaluates its child once, then again while the result differs from
    the target, at most limit more times, and returns the last result.
  - leaf: checks an optional named precondition, then invokes a named Action.
  - subtree: evaluates another registered tree in place.

A status with Bail set aborts every composite immediately and is returned
unchanged.

# Evaluation

Leaves are resolved by name through a Registry when an Engine evaluates a
tree, so trees stay plain data. The type parameter C is the evaluation
context handed to actions and preconditions; the agent package supplies it.

Two Status values are Equal when their Results are equal. Cancellable and
Bail are metadata, which means a Running status matches Running(false)
whatever its Cancellable flag.

# go-behaviortree

FromNode adapts a go-behaviortree node into a leaf action and Engine.Node
exports a registered tree as a bt.Node, so either side can be composed with
the other's composites or driven by a bt.Ticker.
*/
package behavior
